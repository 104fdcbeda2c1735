package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tubechat/tubechat/internal/core"
)

const answerWidth = 80

var (
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	answerStyle  = lipgloss.NewStyle().Width(answerWidth).PaddingLeft(2)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
)

func chatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <video-url>",
		Short: "Load a video and chat with its transcript in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			sess := core.NewSession()
			out := cmd.OutOrStdout()
			idx, err := a.chat.Load(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Transcript loaded and indexed (%s, %d chunks).\n", idx.Meta().Key, idx.Len())
			fmt.Fprintln(out, "Commands: /summary /key_points /entities /timeline /quit")

			return chatLoop(cmd, a.chat, sess, cmd.InOrStdin(), out)
		},
	}
}

func chatLoop(cmd *cobra.Command, chat *core.ChatService, sess *core.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		if name, ok := strings.CutPrefix(line, "/"); ok {
			mode, err := core.ParseMode(name)
			if err != nil || !mode.IsAnalysis() {
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("unknown command /%s", name)))
				continue
			}
			answer, err := chat.Analyze(cmd.Context(), sess, mode)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
				continue
			}
			fmt.Fprintln(out, titleStyle.Render(mode.Label()))
			fmt.Fprintln(out, answerStyle.Render(answer))
			continue
		}

		answer, err := chat.Ask(cmd.Context(), sess, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintln(out, speakerStyle.Render(core.SpeakerAssistant+":"))
		fmt.Fprintln(out, answerStyle.Render(answer))
	}
}
