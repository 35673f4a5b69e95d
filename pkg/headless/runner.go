package headless

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/svedentsov/chatstream/pkg/api"
	"github.com/svedentsov/chatstream/pkg/chat"
	"github.com/svedentsov/chatstream/pkg/config"
	"github.com/svedentsov/chatstream/pkg/controllers"
	"github.com/svedentsov/chatstream/pkg/logger"
	"github.com/svedentsov/chatstream/pkg/render"
	"github.com/svedentsov/chatstream/pkg/stream"
	"github.com/svedentsov/chatstream/pkg/tasks"
)

// runner executes one prompt against the backend and prints the streamed
// answer to the terminal.
type runner struct {
	api        *api.Client
	cache      *chat.Cache
	registry   *tasks.Registry
	controller *controllers.ChatController
	renderer   *render.Renderer
	out        io.Writer

	mu          sync.Mutex
	printedLen  map[string]int
	completions chan string
}

func newRunner(out io.Writer) *runner {
	settings := config.Get()

	cache := chat.NewCache()
	registry := tasks.New()
	apiClient := api.NewClientWithTimeout(settings.Server.URL, settings.Server.Timeout)
	renderer := render.New(render.Options{
		CodeTheme:    settings.Render.CodeTheme,
		ShowThinking: settings.Render.ShowThinking,
		ShowSources:  settings.Render.ShowSources,
	})

	r := &runner{
		api:         apiClient,
		cache:       cache,
		registry:    registry,
		renderer:    renderer,
		out:         out,
		printedLen:  make(map[string]int),
		completions: make(chan string, 1),
	}

	streamer := stream.NewClient(stream.Config{
		BaseURL:  settings.Server.URL,
		Cache:    cache,
		Registry: registry,
		OnComplete: func(sessionID string) {
			r.completions <- sessionID
		},
		OnNotify: func(sessionID, text string) {
			fmt.Fprintf(out, "\n%s\n", text)
		},
	})

	r.controller = controllers.NewChatController(cache, streamer, apiClient)

	if settings.Render.ShowThinking {
		registry.Subscribe(r.printProgress)
	}
	cache.Subscribe(r.printDelta)

	return r
}

// run sends the prompt in the given session, creating one when none is
// given, and blocks until the stream finishes.
func (r *runner) run(ctx context.Context, sessionID, prompt string, fileIDs []string) error {
	if sessionID == "" {
		session, err := r.api.CreateSession(ctx, prompt)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		sessionID = session.ID
		logger.Debug("Created session %s", sessionID)
	}

	if err := r.controller.OpenSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	placeholder, err := r.controller.Send(ctx, sessionID, prompt, fileIDs)
	if err != nil {
		return err
	}

	select {
	case <-r.completions:
	case <-ctx.Done():
		r.controller.StopAll()
		<-r.completions
		return ctx.Err()
	}

	fmt.Fprintln(r.out)

	msg, ok := r.cache.Get(sessionID, placeholder.ID)
	if !ok {
		return nil
	}
	if msg.HasError() {
		return fmt.Errorf("generation failed: %s", msg.Error)
	}
	if sources := r.renderer.Sources(msg.Sources); sources != "" {
		fmt.Fprintln(r.out, sources)
	}
	return nil
}

// printDelta writes newly streamed text of the active assistant message.
func (r *runner) printDelta(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.registry.Active() {
		msg, ok := r.cache.Get(sessionID, id)
		if !ok {
			continue
		}
		printed := r.printedLen[id]
		if len(msg.Text) > printed {
			fmt.Fprint(r.out, msg.Text[printed:])
			r.printedLen[id] = len(msg.Text)
		}
	}
}

func (r *runner) printProgress(messageID string) {
	state, ok := r.registry.Get(messageID)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// progress is only useful before the answer text starts
	if r.printedLen[messageID] > 0 {
		return
	}
	if out := r.renderer.Progress(state); out != "" {
		fmt.Fprintf(r.out, "\r%s\n", out)
	}
}
