package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oresand/toolbridge/internal/agent"
	"github.com/oresand/toolbridge/internal/llm"
	"github.com/oresand/toolbridge/internal/tool"
)

func newChatCmd() *cobra.Command {
	var (
		model    string
		hostWait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive tool-calling chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := loadConfig()
			db, store, err := openPrefs()
			if err != nil {
				return err
			}
			defer db.Close()

			provider, selectedModel, err := buildProvider(cfg, store)
			if err != nil {
				return err
			}
			if model != "" {
				selectedModel = model
			}

			srv, err := startBridge(ctx, cfg, hostWait)
			if err != nil {
				return err
			}

			tools := currentTools(ctx, srv)
			fmt.Printf("Connected. Provider %s, model %s, %d tools.\n",
				provider.Name(), selectedModel, len(tools))

			session := newChatSession(loopConfig(cfg), provider, selectedModel, srv, tools)
			srv.OnChanged(session.setPendingTools)

			if err := session.repl(ctx, store); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model name (overrides config and saved preference)")
	cmd.Flags().DurationVar(&hostWait, "host-wait", 30*time.Second, "how long to wait for the host application to connect")
	return cmd
}

// chatSession holds one interactive conversation and its loop.
type chatSession struct {
	loopCfg  agent.LoopConfig
	provider llm.Provider
	model    string
	executor tool.Executor
	tools    tool.Set
	loop     *agent.Loop
	suggest  *agent.Suggester

	// pendingTools, when non-nil, is a tool listing pushed by the host
	// mid-session. It takes effect on the next reset. Guarded by mu
	// since the bridge delivers it from its read goroutine.
	mu           sync.Mutex
	pendingTools tool.Set
}

func newChatSession(loopCfg agent.LoopConfig, provider llm.Provider, model string, executor tool.Executor, tools tool.Set) *chatSession {
	s := &chatSession{
		loopCfg:  loopCfg,
		provider: provider,
		model:    model,
		executor: executor,
		tools:    tools,
		suggest:  agent.NewSuggester(provider, model, log),
	}
	s.newLoop()
	return s
}

// newLoop replaces the loop and its chat session, applying any
// pending tool listing.
func (s *chatSession) newLoop() {
	s.mu.Lock()
	if s.pendingTools != nil {
		s.tools = s.pendingTools
		s.pendingTools = nil
	}
	s.mu.Unlock()
	chat := s.provider.CreateChat(llm.ChatOptions{Model: s.model})
	s.loop = agent.NewLoop(s.loopCfg, chat, s.executor, s.tools,
		agent.BuildConfig(s.tools, time.Now()), log)
}

func (s *chatSession) setPendingTools(set tool.Set) {
	s.mu.Lock()
	s.pendingTools = set
	s.mu.Unlock()
	fmt.Println("\n(host tool set changed; /reset to pick it up)")
}

// repl reads prompts from stdin until EOF or /quit.
func (s *chatSession) repl(ctx context.Context, store traceSaver) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := s.command(ctx, line, store)
			if err != nil {
				fmt.Println("error:", err)
			}
			if done {
				return nil
			}
			continue
		}

		result, err := s.loop.Run(ctx, line)
		switch {
		case errors.Is(err, agent.ErrMaxTurns):
			fmt.Println("The model kept requesting tools past the turn limit. /trace shows what happened.")
		case errors.Is(err, agent.ErrStale):
			// A reset landed mid-run; nothing to print.
		case err != nil:
			fmt.Println("error:", err)
			fmt.Println("(the session is intact; you can retry the same prompt)")
		default:
			fmt.Println(result.Text)
		}
	}
}

type traceSaver interface {
	SaveTrace(provider, model, entries string) (string, error)
}

// command handles slash commands. It returns true when the session
// should end.
func (s *chatSession) command(ctx context.Context, line string, store traceSaver) (bool, error) {
	switch cmd, _, _ := strings.Cut(line, " "); cmd {
	case "/quit", "/exit":
		return true, nil

	case "/reset":
		s.loop.Reset()
		s.newLoop()
		fmt.Println("Session reset.")
		// Offer a fresh starting point, asynchronously since the
		// suggestion is advisory.
		go func() {
			if suggestion := s.suggest.Suggest(ctx, s.tools); suggestion != "" {
				fmt.Println("\nTry:", suggestion)
			}
		}()
		return false, nil

	case "/tools":
		if len(s.tools) == 0 {
			fmt.Println("No tools advertised.")
			return false, nil
		}
		for _, d := range s.tools {
			fmt.Printf("  %-24s %s\n", d.Name, d.Description)
		}
		return false, nil

	case "/trace":
		out, err := s.loop.Trace().JSON()
		if err != nil {
			return false, err
		}
		fmt.Println(string(out))
		return false, nil

	case "/save":
		out, err := s.loop.Trace().JSON()
		if err != nil {
			return false, err
		}
		id, err := store.SaveTrace(s.provider.Name(), s.model, string(out))
		if err != nil {
			return false, err
		}
		fmt.Println("Saved trace", id)
		return false, nil

	case "/suggest":
		if suggestion := s.suggest.Suggest(ctx, s.tools); suggestion != "" {
			fmt.Println("Try:", suggestion)
		} else {
			fmt.Println("No suggestion available.")
		}
		return false, nil

	case "/help":
		fmt.Println("Commands: /tools /trace /save /suggest /reset /quit")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", line)
	}
}
