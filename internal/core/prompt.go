package core

import (
	"errors"
	"fmt"
)

// Mode selects an analysis instruction appended to the system prompt.
type Mode string

const (
	ModeChat      Mode = ""
	ModeSummary   Mode = "summary"
	ModeKeyPoints Mode = "key_points"
	ModeEntities  Mode = "entities"
	ModeTimeline  Mode = "timeline"
)

var ErrUnknownMode = errors.New("unknown analysis mode")

const systemPromptTemplate = `You are a smart assistant that answers based ONLY on this transcript/text:

%s

If answer is not found, say: "I don't know."`

type modeInfo struct {
	label       string
	question    string
	instruction string
}

var analysisModes = map[Mode]modeInfo{
	ModeSummary: {
		label:       "📌 Summary",
		question:    "Summarize",
		instruction: "Summarize the document into 10 bullet points.",
	},
	ModeKeyPoints: {
		label:       "📝 Key Points",
		question:    "Key points",
		instruction: "Extract the 8 key takeaways.",
	},
	ModeEntities: {
		label:       "🧬 Named Entities",
		question:    "Entities",
		instruction: "List all named entities (people, places, orgs, tools).",
	},
	ModeTimeline: {
		label:       "⏳ Timeline",
		question:    "Timeline",
		instruction: "Extract a chronological timeline of events.",
	},
}

// AnalysisModes lists the canned analyses in display order.
func AnalysisModes() []Mode {
	return []Mode{ModeSummary, ModeKeyPoints, ModeEntities, ModeTimeline}
}

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if m == ModeChat {
		return ModeChat, nil
	}
	if _, ok := analysisModes[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// IsAnalysis reports whether m is one of the canned analysis modes.
func (m Mode) IsAnalysis() bool {
	_, ok := analysisModes[m]
	return ok
}

func (m Mode) Label() string {
	return analysisModes[m].label
}

// Question is the fixed question sent for a canned analysis.
func (m Mode) Question() string {
	return analysisModes[m].question
}

// BuildSystemPrompt interpolates the retrieved context into the base prompt
// and appends the instruction for mode, if any.
func BuildSystemPrompt(context string, mode Mode) string {
	prompt := fmt.Sprintf(systemPromptTemplate, context)
	if info, ok := analysisModes[mode]; ok {
		prompt += "\n" + info.instruction
	}
	return prompt
}
