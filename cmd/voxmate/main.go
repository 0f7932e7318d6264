// Command voxmate is a terminal voice client: it records the microphone with
// ffmpeg, streams it to the server and plays the replies with ffplay.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/client"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/playback"
)

type options struct {
	server string
	email  string
	token  string
	text   string
	device string
	volume float64
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("voxmate", flag.ContinueOnError)
	fs.StringVar(&o.server, "server", "http://localhost:8080", "VoxMate API base URL")
	fs.StringVar(&o.email, "email", "", "email to log in with")
	fs.StringVar(&o.token, "token", "", "magic-link token to redeem")
	fs.StringVar(&o.text, "text", "", "send one text message and exit")
	fs.StringVar(&o.device, "device", defaultInputDevice(), "ffmpeg input device")
	fs.Float64Var(&o.volume, "volume", 1, "playback volume between 0 and 1")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.email == "" && o.token == "" {
		return options{}, errors.New("one of -email or -token is required")
	}
	return o, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "voxmate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	api := client.New(opts.server)
	stdin := bufio.NewScanner(os.Stdin)

	if err := authenticate(ctx, api, opts, stdin); err != nil {
		return err
	}

	conv, err := conversation(ctx, api)
	if err != nil {
		return err
	}

	player := playback.NewController(ffplay{}, logger)
	player.SetVolume(opts.volume)
	defer player.Stop()

	s := &session{api: api, player: player, conversationID: conv.ID, device: opts.device}

	if opts.text != "" {
		return s.sendText(ctx, opts.text, true)
	}

	fmt.Println("Type a message and press Enter, or press Enter on an empty line to talk. /quit exits.")
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return stdin.Err()
		}
		line := strings.TrimSpace(stdin.Text())

		switch {
		case line == "/quit":
			return nil
		case line == "":
			err = s.talk(ctx, stdin)
		default:
			err = s.sendText(ctx, line, false)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			fmt.Println("!", err)
		}
	}
}

func authenticate(ctx context.Context, api *client.Client, opts options, stdin *bufio.Scanner) error {
	token := opts.token
	if token == "" {
		res, err := api.Login(ctx, opts.email)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		token = res.Token
		if token == "" {
			// Servers that withhold the token may already have opened a session.
			if _, err := api.Me(ctx); err == nil {
				return nil
			}
			fmt.Print("Check your inbox and paste the token from the magic link: ")
			if !stdin.Scan() {
				return errors.New("no token entered")
			}
			token = strings.TrimSpace(stdin.Text())
		}
	}

	user, err := api.Verify(ctx, token)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	fmt.Printf("Signed in as %s\n", user.Email)
	return nil
}

func conversation(ctx context.Context, api *client.Client) (model.Conversation, error) {
	conv, msgs, err := api.RecentConversation(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	if conv != nil {
		fmt.Printf("Resuming %q (%d messages)\n", conv.Title, len(msgs))
		return *conv, nil
	}

	req := model.CreateConversationRequest{}
	if p, err := api.CurrentPersona(ctx); err == nil {
		req.PersonaID = &p.ID
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return model.Conversation{}, err
	}
	return api.CreateConversation(ctx, req)
}

type session struct {
	api            *client.Client
	player         *playback.Controller
	conversationID int64
	device         string
}

func (s *session) sendText(ctx context.Context, text string, wait bool) error {
	resp, err := s.api.SendText(ctx, s.conversationID, text)
	if err != nil {
		return err
	}
	if resp.AIMessage == nil {
		return nil
	}
	fmt.Println("VoxMate:", resp.AIMessage.Content)
	if resp.AudioURL != "" {
		s.play(ctx, resp.AudioURL, wait)
	}
	return nil
}

func (s *session) play(ctx context.Context, url string, wait bool) {
	if wait {
		s.player.Play(ctx, url)
		return
	}
	go s.player.Play(ctx, url)
}

// talk records until the user presses Enter, showing interim transcripts,
// then runs the voice turn.
func (s *session) talk(ctx context.Context, stdin *bufio.Scanner) error {
	s.player.Stop()

	if err := s.api.StartCapture(ctx, s.conversationID, recordingMIME, 0); err != nil {
		return err
	}

	rec, err := startRecorder(ctx, s.device)
	if err != nil {
		s.api.CancelCapture(context.WithoutCancel(ctx), s.conversationID)
		return err
	}

	uploadCtx, stopUpload := context.WithCancel(ctx)
	uploaded := make(chan error, 1)
	go func() { uploaded <- s.upload(uploadCtx, rec) }()

	fmt.Println("Listening... press Enter to stop.")
	stdin.Scan()

	rec.Stop()
	err = <-uploaded
	stopUpload()
	if err != nil {
		s.api.CancelCapture(context.WithoutCancel(ctx), s.conversationID)
		return err
	}

	turn, err := s.api.StopCapture(ctx, s.conversationID)
	switch {
	case errors.Is(err, apperr.ErrNoSpeechDetected):
		fmt.Println("(didn't catch that)")
		return nil
	case err != nil:
		return err
	}

	fmt.Println("You:", turn.UserMessage.Content)
	fmt.Println("VoxMate:", turn.AIMessage.Content)
	s.play(ctx, turn.AudioURL, false)
	return nil
}

// upload forwards recorded chunks and prints interim transcripts until the
// recorder closes its output.
func (s *session) upload(ctx context.Context, rec *recorder) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var shown string
	for {
		select {
		case chunk, ok := <-rec.Chunks():
			if !ok {
				return rec.Err()
			}
			if _, err := s.api.AppendAudio(ctx, s.conversationID, chunk); err != nil {
				return err
			}
		case <-ticker.C:
			interim, err := s.api.Interim(ctx, s.conversationID)
			if err == nil && interim.Text != "" && interim.Text != shown {
				shown = interim.Text
				fmt.Printf("  ... %s\n", shown)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
