package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/chat"
)

// newChatCmd creates the chat subcommand.
func newChatCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant interactively",
		Long: `Chat starts an interactive session against an embedded assistant. The
command seeds the configured datasets into the local store, builds the
product index, and routes every question through the tool dispatcher.

Inside the session these commands are available:
  history   show the conversation so far
  sessions  list active sessions
  stats     show usage counters
  clear     wipe the current session history
  examples  show sample questions
  quit      leave the chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(session)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "resume or name a session ID")

	return cmd
}

func runChat(sessionID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Interactive mode ignores --json, the transcript is the output.
	ui := NewUI(false, noColor)

	ui.Section("ConvoSage Assistant")
	ui.Step("Loading datasets into the embedded store")

	bars := newSeedBars(ui)
	bootStart := time.Now()
	assist, err := buildAssistant(ctx, cfg, bars.Report)
	ui.Close()
	if err != nil {
		return err
	}
	defer assist.Close()

	ui.Success("Ready in %s (%d outlets, %d products, %d vocabulary terms)",
		FormatDuration(time.Since(bootStart)),
		assist.seeded.OutletsSeeded,
		assist.seeded.ProductsIndexed,
		assist.seeded.VocabularySize)

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Println("🎯 Interactive Chat Mode")
	fmt.Println("   Ask about outlets, products, or simple arithmetic")
	fmt.Println("   Type 'examples' for sample questions, 'quit' to leave")
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Println()

	think := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	think.Suffix = " thinking..."
	think.Writer = os.Stderr

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("❓ You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "quit", "exit":
			fmt.Println("\n👋 Thanks for chatting with ConvoSage!")
			return nil
		case "examples":
			showExamples()
			continue
		case "history":
			printHistory(assist, sessionID)
			continue
		case "sessions":
			printSessions(ui, assist)
			continue
		case "stats":
			printStats(ui, assist)
			continue
		case "clear":
			if sessionID != "" && assist.sessions.Clear(sessionID) {
				fmt.Println("   Session history cleared.")
			} else {
				fmt.Println("   Nothing to clear.")
			}
			continue
		}

		think.Start()
		start := time.Now()
		reply := assist.dispatcher.Dispatch(ctx, sessionID, input)
		think.Stop()

		sessionID = reply.SessionID

		fmt.Printf("\n💬 %s\n", reply.Text)
		fmt.Printf("   tool=%s session=%s took=%s\n\n",
			reply.Tool, shortID(reply.SessionID), FormatDuration(time.Since(start)))
	}

	return scanner.Err()
}

func showExamples() {
	fmt.Println("\n📝 Example questions you can try:")
	fmt.Println("   • Is there an outlet in Petaling Jaya?")
	fmt.Println("   • How many outlets are there in KL?")
	fmt.Println("   • Which outlets are in Selangor?")
	fmt.Println("   • Do you sell a tumbler?")
	fmt.Println("   • What ceramic mugs do you have?")
	fmt.Println("   • Calculate 12 * 7")
	fmt.Println("   • What is 250 / 4?")
	fmt.Println()
}

func printHistory(assist *assistant, sessionID string) {
	history, ok := assist.sessions.History(sessionID)
	if sessionID == "" || !ok || len(history) == 0 {
		fmt.Println("   No conversation yet.")
		return
	}

	fmt.Println()
	for _, msg := range history {
		prefix := "you"
		if msg.Role == chat.RoleAssistant {
			prefix = "bot"
		}
		fmt.Printf("   %s  %s\n", prefix, msg.Content)
	}
	fmt.Println()
}

func printSessions(ui *UI, assist *assistant) {
	infos := assist.sessions.Sessions()
	if len(infos) == 0 {
		fmt.Println("   No active sessions.")
		return
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			shortID(info.ID),
			strconv.Itoa(info.MessageCount),
			info.CreatedAt.Format(time.Kitchen),
			FormatDuration(time.Since(info.LastActive)) + " ago",
		})
	}
	ui.Table([]string{"Session", "Messages", "Started", "Last Active"}, rows)
}

func printStats(ui *UI, assist *assistant) {
	usage := assist.usage.Stats()
	store := assist.sessions.Stats()

	fmt.Println()
	ui.KeyValue("Requests", usage.TotalRequests)
	ui.KeyValue("Active sessions", store.ActiveSessions)
	ui.KeyValue("Stored messages", store.TotalMessages)
	ui.KeyValue("Uptime", FormatDuration(time.Duration(usage.UptimeSeconds)*time.Second))

	tools := make([]string, 0, len(usage.ByTool))
	for tool := range usage.ByTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		ui.KeyValue("  "+tool, usage.ByTool[tool])
	}
	fmt.Println()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// seedBars fans pipeline progress callbacks out to one bar per stage.
type seedBars struct {
	ui   *UI
	bars map[string]*mpb.Bar
}

func newSeedBars(ui *UI) *seedBars {
	return &seedBars{ui: ui, bars: make(map[string]*mpb.Bar)}
}

// Report satisfies ingest.ProgressFunc. A bar appears when its stage first
// reports and completes when the count reaches the stage total.
func (s *seedBars) Report(stage string, completed, total int) {
	bar, ok := s.bars[stage]
	if !ok {
		if total <= 0 {
			return
		}
		bar = s.ui.ProgressBar(stageLabel(stage), int64(total))
		if bar == nil {
			return
		}
		s.bars[stage] = bar
	}
	bar.SetCurrent(int64(completed))
}
