package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/muesli/reflow/truncate"
	"github.com/opentube/opentube/event"
	"github.com/opentube/opentube/extractor"
	"github.com/opentube/opentube/handoff"
	"github.com/opentube/opentube/history"
	"github.com/opentube/opentube/icon"
	"github.com/opentube/opentube/key"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/network"
	"github.com/opentube/opentube/player"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/session"
	"github.com/opentube/opentube/stream"
	"github.com/opentube/opentube/style"
	"github.com/opentube/opentube/util"
	"github.com/opentube/opentube/worker"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("quality", "q", "", "Preferred quality (e.g. 480p, 1080p)")
	playCmd.Flags().StringP("resume", "r", "", "Resume a saved session by id")
	playCmd.Flags().BoolP("loop", "l", false, "Wrap around at the ends of the queue")
	playCmd.Flags().IntP("start", "s", 0, "Index of the item to start from")
	lo.Must0(viper.BindPFlag(key.PlayerDefaultQuality, playCmd.Flags().Lookup("quality")))
	lo.Must0(viper.BindPFlag(key.PlayerLoop, playCmd.Flags().Lookup("loop")))

	playCmd.MarkFlagsMutuallyExclusive("resume", "start")
	lo.Must0(playCmd.RegisterFlagCompletionFunc("quality", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return qualityLabels(), cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(playCmd.RegisterFlagCompletionFunc("resume", completionSessionIDs))
}

var playCmd = &cobra.Command{
	Use:   "play [url...]",
	Short: "Play videos and playlists in mpv",
	Long: `Play videos and playlists in mpv.

While playing, type a command and press enter:
  n / p          next / previous item
  <enter>        toggle pause
  seek <sec>     jump to a position
  goto <index>   jump to an item
  quality <q>    switch quality (e.g. 1080p)
  q              quit and save the session`,
	Example: "  opentube play https://youtu.be/dQw4w9WgXcQ\n  opentube play --resume 3f1c2a9e-...",
	Run: func(cmd *cobra.Command, args []string) {
		resume := lo.Must(cmd.Flags().GetString("resume"))
		if resume == "" && len(args) == 0 {
			handleErr(cmd.Help())
			return
		}

		mpvPath := viper.GetString(key.PlayerMpvPath)
		checkPlayer(mpvPath)

		youtube := extractor.NewYouTube(network.New(network.Options{
			Timeout:     time.Duration(viper.GetInt(key.ExtractorTimeoutSeconds)) * time.Second,
			Fingerprint: viper.GetBool(key.ExtractorTLSFingerprint),
		}))

		var (
			q   *queue.Queue
			err error
		)
		if resume != "" {
			q, err = loadSession(resume)
		} else {
			q, err = buildQueue(cmd.Context(), youtube, args, lo.Must(cmd.Flags().GetInt("start")))
		}
		handleErr(err)

		handleErr(play(youtube, player.NewMPV(mpvPath), q))
	},
}

func loadSession(id string) (*queue.Queue, error) {
	store, err := handoff.OpenDefault()
	if err != nil {
		return nil, err
	}
	defer util.Ignore(store.Close)

	return store.Load(id)
}

// buildQueue expands every argument into items. Playlists contribute all their entries.
func buildQueue(ctx context.Context, lister extractor.Lister, sources []string, start int) (*queue.Queue, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var items []queue.Item
	for _, source := range sources {
		erase := util.PrintErasable(fmt.Sprintf("%s Fetching %s...", icon.Get(icon.Progress), source))
		found, err := lister.Items(ctx, source)
		erase()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		items = append(items, found...)
	}

	if len(items) == 0 {
		return nil, session.ErrEmptyQueue
	}

	if viper.GetBool(key.PlayerLoop) {
		return queue.NewLooping(start, items), nil
	}
	return queue.New(start, items), nil
}

func play(ext extractor.Extractor, engine *player.MPV, q *queue.Queue) error {
	pool := worker.New(viper.GetInt(key.ResolverWorkers))

	var recorder history.Recorder
	if viper.GetBool(key.HistorySaveOnPlay) {
		recorder = history.Default()
	}

	s := session.New(session.Deps{
		Extractor: ext,
		Engine:    engine,
		Recorder:  recorder,
		Pool:      pool,
	}, session.FromConfig()...)

	quit := make(chan string, 1)
	stop := func(reason string) {
		select {
		case quit <- reason:
		default:
		}
	}

	printer := newPrinter(util.TerminalWidth(80))
	for _, category := range event.Categories() {
		s.Subscribe(category, func(evt event.Event) {
			if line := printer.format(evt); line != "" {
				fmt.Println(line)
			}

			switch evt := evt.(type) {
			case event.QueueFinished:
				stop("queue finished")
			case event.Failure:
				if evt.Kind == event.FailureExhausted {
					stop("nothing left to play")
				}
			}
		})
	}

	if err := s.LoadQueue(q); err != nil {
		s.Close()
		pool.Wait()
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	go watchEngine(engine, stop)
	go readCommands(s, stop)

	select {
	case reason := <-quit:
		log.Infof("leaving: %s", reason)
	case sig := <-signals:
		log.Infof("leaving: %s", sig)
	}

	s.Close()
	pool.Wait()

	return saveSession(q)
}

// watchEngine stops the session once the mpv process goes away.
func watchEngine(engine *player.MPV, stop func(string)) {
	for {
		exited := engine.Exited()
		if exited == nil {
			time.Sleep(500 * time.Millisecond)
			continue
		}
		<-exited
		stop("mpv exited")
		return
	}
}

func readCommands(s *session.Orchestrator, stop func(string)) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := runCommand(s, scanner.Text()); err != nil {
			if errors.Is(err, errQuit) {
				stop("quit")
				return
			}
			fmt.Printf("%s %s\n", icon.Get(icon.Fail), err)
		}
	}
}

var errQuit = errors.New("quit")

// controller is the part of a session driven from the prompt.
type controller interface {
	Next()
	Previous()
	TogglePause()
	SeekTo(time.Duration)
	SkipTo(int)
	ChangeQuality(string)
}

func runCommand(c controller, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		c.TogglePause()
		return nil
	}

	arg := func() (string, error) {
		if len(fields) < 2 {
			return "", fmt.Errorf("%s needs an argument", fields[0])
		}
		return fields[1], nil
	}

	switch fields[0] {
	case "q", "quit":
		return errQuit
	case "n", "next":
		c.Next()
	case "p", "prev", "previous":
		c.Previous()
	case "space", "pause":
		c.TogglePause()
	case "seek":
		value, err := arg()
		if err != nil {
			return err
		}
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid position %q", value)
		}
		c.SeekTo(time.Duration(seconds * float64(time.Second)))
	case "goto":
		value, err := arg()
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid index %q", value)
		}
		c.SkipTo(index)
	case "quality":
		value, err := arg()
		if err != nil {
			return err
		}
		c.ChangeQuality(value)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

func saveSession(q *queue.Queue) error {
	store, err := handoff.OpenDefault()
	if err != nil {
		return err
	}
	defer util.Ignore(store.Close)

	id, err := store.Save(q)
	if err != nil {
		return err
	}

	fmt.Printf(
		"%s session saved, resume with %s\n",
		style.Success(icon.Get(icon.Success)),
		style.Value("opentube play --resume "+id),
	)
	return nil
}

// printer renders session events as single terminal lines.
type printer struct {
	width int
}

func newPrinter(width int) *printer {
	return &printer{width: width}
}

func (p *printer) format(evt event.Event) string {
	var line string

	switch evt := evt.(type) {
	case event.StateChanged:
		switch evt.Status {
		case event.StatusPlaying:
			line = fmt.Sprintf("%s %s", icon.Get(icon.Playing), style.Bold(evt.Item.Title))
		case event.StatusPaused:
			line = fmt.Sprintf("%s %s", icon.Get(icon.Paused), style.Faint("paused"))
		default:
			return ""
		}
	case event.CurrentItemChanged:
		line = fmt.Sprintf("%s %s %s",
			icon.Get(icon.Queue),
			style.Key(fmt.Sprintf("#%d", evt.Index)),
			evt.Item.Title,
		)
	case event.LoadingChanged:
		if !evt.Loading || evt.Attempt <= 1 {
			return ""
		}
		line = fmt.Sprintf("%s %s", icon.Get(icon.Loading), style.Faint(fmt.Sprintf("retrying, attempt %d", evt.Attempt)))
	case event.QualitiesAvailable:
		line = fmt.Sprintf("%s %s %s",
			icon.Get(icon.Quality),
			style.Value(evt.Current),
			style.Faint(strings.Join(evt.Qualities, " ")),
		)
	case event.Failure:
		line = fmt.Sprintf("%s %s", icon.Get(icon.Fail), style.Failure(evt.Error()))
	case event.QueueFinished:
		line = fmt.Sprintf("%s %s", icon.Get(icon.Success), "queue finished")
	default:
		return ""
	}

	if p.width > 0 {
		line = truncate.StringWithTail(line, uint(p.width), "…")
	}
	return line
}

func qualityLabels() []string {
	return lo.Map([]int{144, 240, 360, 480, 720, 1080, 1440, 2160}, func(h int, _ int) string {
		return stream.Label(h)
	})
}

func completionSessionIDs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	store, err := handoff.OpenDefault()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer util.Ignore(store.Close)

	summaries, err := store.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return lo.Map(summaries, func(s handoff.Summary, _ int) string { return s.ID }), cobra.ShellCompDirectiveNoFileComp
}
