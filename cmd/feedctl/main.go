package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/amiyamandal-dev/spacesfeed/internal/client"
	"github.com/amiyamandal-dev/spacesfeed/internal/config"
	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/internal/feed"
	"github.com/amiyamandal-dev/spacesfeed/internal/media"
	"github.com/amiyamandal-dev/spacesfeed/internal/repository/memory"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

const usage = `feedctl drives the spacesfeed API from the command line.

Usage:
  feedctl register --handle NAME --password PASS [--avatar URL]
  feedctl post     --handle NAME --password PASS --space ID [--emoji E] [--text T] [--count N]
  feedctl scroll   --handle NAME --password PASS --space ID [--to N] [--step D] [--local-position]
  feedctl search   --handle NAME --password PASS --query Q [--follow HANDLE]

Every command accepts --config, --base-url and --log-level; the
SPACES_CLIENT_* and SPACES_FEED_* environment variables apply too.
`

type env struct {
	cfg    *config.Config
	log    *logger.Logger
	client *client.Client
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "register":
		err = runRegister(ctx, args)
	case "post":
		err = runPost(ctx, args)
	case "scroll":
		err = runScroll(ctx, args)
	case "search":
		err = runSearch(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "feedctl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set carrying the flags shared by every command
func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ExitOnError)
	flags.String("config", "", "path to a config file")
	flags.String("base-url", "", "API base URL")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("handle", "", "account handle")
	flags.String("password", "", "account password")
	return flags
}

// setup loads the client configuration, with set flags taking priority
func setup(flags *pflag.FlagSet) (*env, error) {
	v := config.NewViper()
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	v.SetDefault("logging.format", "text")
	bind(v, "client.base_url", flags.Lookup("base-url"))
	bind(v, "logging.level", flags.Lookup("log-level"))

	cfg, err := config.LoadClient(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	c, err := client.New(cfg.Client, log)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, log: log, client: c}, nil
}

func bind(v *viper.Viper, key string, flag *pflag.Flag) {
	if flag != nil && flag.Changed {
		_ = v.BindPFlag(key, flag)
	}
}

func (e *env) login(ctx context.Context, flags *pflag.FlagSet) (*domain.UserSummary, error) {
	handle, _ := flags.GetString("handle")
	password, _ := flags.GetString("password")
	if handle == "" || password == "" {
		return nil, errors.New("--handle and --password are required")
	}

	resp, err := e.client.Login(ctx, handle, password)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func runRegister(ctx context.Context, args []string) error {
	flags := newFlagSet("register")
	avatar := flags.String("avatar", "", "avatar URL")
	display := flags.String("display-name", "", "display name")
	_ = flags.Parse(args)

	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	handle, _ := flags.GetString("handle")
	password, _ := flags.GetString("password")

	user, err := e.client.Register(ctx, &domain.UserRegisterRequest{
		Handle:      handle,
		DisplayName: *display,
		AvatarURL:   *avatar,
		Password:    password,
	})
	if err != nil {
		return err
	}

	fmt.Printf("registered @%s (%s)\n", user.Handle, user.ID)
	return nil
}

func runPost(ctx context.Context, args []string) error {
	flags := newFlagSet("post")
	space := flags.String("space", "", "space id")
	emoji := flags.String("emoji", "👏", "reaction emoji")
	text := flags.String("text", "", "reaction comment")
	count := flags.Int("count", 1, "number of reactions to post")
	_ = flags.Parse(args)

	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	if _, err := e.login(ctx, flags); err != nil {
		return err
	}

	for i := 0; i < *count; i++ {
		r, err := e.client.PostReaction(ctx, *space, &domain.ReactionCreateRequest{Emoji: *emoji, Text: *text})
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s %s\n", r.Seq, r.Emoji, r.Text)
	}
	return nil
}

func runScroll(ctx context.Context, args []string) error {
	flags := newFlagSet("scroll")
	space := flags.String("space", "", "space id")
	to := flags.Int("to", 20, "last index to scroll to")
	step := flags.Duration("step", 150*time.Millisecond, "pause between visible items")
	local := flags.Bool("local-position", false, "keep the scroll position in memory instead of on the server")
	_ = flags.Parse(args)

	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	if _, err := e.login(ctx, flags); err != nil {
		return err
	}

	warmer, err := media.NewWarmer(media.NewHTTPLoader(e.client.HTTPClient()), e.cfg.Media, e.log)
	if err != nil {
		return err
	}
	defer warmer.Close()

	var positions feed.PositionStore = e.client.Positions()
	if *local {
		positions = memory.NewPositionStore()
	}

	opts := e.cfg.Feed.Options()
	ctrl, err := feed.NewController(*space, opts, feed.ControllerDeps{
		Fetcher:    e.client.ReactionSource(*space),
		Positions:  positions,
		Prefetcher: warmer,
		Logger:     e.log,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctrl.Subscribe(func(ev feed.Event) {
		switch ev.Kind {
		case feed.EventScrollTo:
			fmt.Printf("restored position %d\n", ev.Index)
		case feed.EventLoadFailed:
			fmt.Printf("load failed: %v\n", ev.Err)
		}
	})

	ctrl.Activate()
	ctrl.Wait()
	printFeed(ctrl.Snapshot())

	start := ctrl.Snapshot().CurrentIndex
	for i := start; i <= *to; i++ {
		select {
		case <-ctx.Done():
			ctrl.Deactivate()
			ctrl.Wait()
			return ctx.Err()
		case <-time.After(*step):
		}

		ctrl.ItemVisible(i)
		snap := ctrl.Snapshot()
		if i >= len(snap.Items)-1 && !snap.HasMoreData && !snap.IsLoadingMore {
			break
		}
	}

	// let a pending load-more fire before reporting
	time.Sleep(opts.LoadMoreDebounce)
	ctrl.Wait()
	warmer.Wait()
	printFeed(ctrl.Snapshot())

	ctrl.Deactivate()
	ctrl.Wait()
	fmt.Printf("saved position %d\n", ctrl.Snapshot().CurrentIndex)
	return nil
}

func printFeed(snap feed.Snapshot) {
	fmt.Printf("%s: %d items, at %d, phase %s, more=%v cursor=%q\n",
		snap.FeedKey, len(snap.Items), snap.CurrentIndex, snap.Phase, snap.HasMoreData, snap.Cursor)
	if snap.Err != nil {
		fmt.Printf("  last error: %v\n", snap.Err)
	}
}

func runSearch(ctx context.Context, args []string) error {
	flags := newFlagSet("search")
	query := flags.String("query", "", "search keyword")
	follow := flags.String("follow", "", "toggle following this handle among the results")
	_ = flags.Parse(args)

	if strings.TrimSpace(*query) == "" {
		return errors.New("--query is required")
	}

	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	if _, err := e.login(ctx, flags); err != nil {
		return err
	}

	users := e.client.Users()
	sc, err := feed.NewSearchController(e.cfg.Feed.Options(), feed.SearchDeps{
		Fetcher: users,
		Follows: users,
		Logger:  e.log,
	})
	if err != nil {
		return err
	}
	defer sc.Close()

	done := make(chan feed.SearchSnapshot, 1)
	sc.Subscribe(func(ev feed.SearchEvent) {
		snap := ev.Snapshot
		if ev.Kind == feed.EventLoadFailed || (!snap.IsSearching && snap.Query != "") {
			select {
			case done <- snap:
			default:
			}
		}
	})

	sc.ChangeQuery(*query)

	var snap feed.SearchSnapshot
	select {
	case snap = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if snap.Err != nil {
		return snap.Err
	}

	for _, u := range snap.Results {
		if *follow != "" && strings.EqualFold(u.Handle, *follow) {
			sc.ToggleFollow(u.ID)
		}
	}
	sc.Wait()

	for _, u := range sc.Snapshot().Results {
		mark := " "
		if u.IsFollowing {
			mark = "✓"
		}
		fmt.Printf("%s @%-20s %s\n", mark, u.Handle, u.DisplayName)
	}
	return nil
}
