// Command pawsadopt is a terminal client for the pet-adoption backend:
// browse pets, file adoption applications, manage favorites, message
// shelters, and run the review back-office.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/config"
	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/admin"
	"github.com/pawsadopt/pawsadopt/internal/services/applications"
	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/services/chat"
	"github.com/pawsadopt/pawsadopt/internal/services/favorites"
	"github.com/pawsadopt/pawsadopt/internal/services/notifications"
	"github.com/pawsadopt/pawsadopt/internal/services/pets"
	"github.com/pawsadopt/pawsadopt/internal/services/users"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

const usage = `Usage: pawsadopt [flags] <command> [args]

Commands:
  signup <email> <password> <name>    Register and create a profile
  login <email> <password>            Sign in
  logout                              Sign out
  whoami                              Show the signed-in user
  pets [-category c] [-search q]      List pets
  pet <id>                            Show one pet
  favs                                List favorited pets
  fav <pet-id>                        Toggle a favorite
  avatar <image-file>                 Upload a new profile avatar
  apply <pet-id> <form.json>          Submit an adoption application
  applications                        List my applications
  cancel <application-id>             Cancel an application
  notifications                       List notifications
  watch                               Follow new notifications (Ctrl-C stops)
  chat <shelter-id>                   Show the conversation with a shelter
  send <conversation-id> <text>       Send a message
  admin users|pets|applications       Back-office listings
  review <application-id> <status>    Approve or reject an application
`

type app struct {
	auth          *auth.Service
	pets          *pets.Service
	favorites     *favorites.Service
	applications  *applications.Service
	chat          *chat.Service
	notifications *notifications.Service
	users         *users.Service
	admin         *admin.Service
	cfg           *config.Config
}

func main() {
	configPath := flag.String("config", "", "Path to optional YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	client, err := supabase.New(supabase.Config{
		ProjectURL: cfg.SupabaseURL,
		AnonKey:    cfg.SupabaseAnonKey,
		Sessions:   supabase.NewFileStorage(cfg.SessionDir),
		Timeout:    cfg.RequestTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create client")
	}

	authSvc := auth.New(client, log)
	petsSvc := pets.New(client, log)
	notifSvc := notifications.New(client, authSvc, log)
	a := &app{
		auth:          authSvc,
		pets:          petsSvc,
		favorites:     favorites.New(client, authSvc, petsSvc, log),
		applications:  applications.New(client, authSvc, petsSvc, notifSvc, log),
		chat:          chat.New(client, authSvc, petsSvc, log),
		notifications: notifSvc,
		users:         users.New(client, authSvc, log),
		admin:         admin.New(client, notifSvc, log),
		cfg:           cfg,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup":
		return a.cmdSignup(ctx, rest)
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		return a.auth.SignOut(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "pets":
		return a.cmdPets(ctx, rest)
	case "pet":
		return a.cmdPet(ctx, rest)
	case "favs":
		return a.cmdFavs(ctx)
	case "fav":
		return a.cmdFav(ctx, rest)
	case "avatar":
		return a.cmdAvatar(ctx, rest)
	case "apply":
		return a.cmdApply(ctx, rest)
	case "applications":
		return a.cmdApplications(ctx)
	case "cancel":
		return a.cmdCancel(ctx, rest)
	case "notifications":
		return a.cmdNotifications(ctx)
	case "watch":
		return a.cmdWatch(ctx)
	case "chat":
		return a.cmdChat(ctx, rest)
	case "send":
		return a.cmdSend(ctx, rest)
	case "admin":
		return a.cmdAdmin(ctx, rest)
	case "review":
		return a.cmdReview(ctx, rest)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: signup <email> <password> <name>")
	}
	profile, err := a.auth.SignUp(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", profile.Name, profile.ID)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}
	session, err := a.auth.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if session.User != nil {
		fmt.Printf("signed in as %s\n", session.User.Email)
	}
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	user, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("not signed in")
		return nil
	}
	stats, err := a.users.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\npending applications: %d  favorites: %d  adopted: %d\n",
		user.Email, user.ID, stats.Applications, stats.Favorites, stats.Adopted)
	return nil
}

func (a *app) cmdPets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pets", flag.ContinueOnError)
	category := fs.String("category", "", "Filter by category (dogs, cats, birds)")
	search := fs.String("search", "", "Search name and breed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := a.pets.List(ctx, *category, *search)
	if err != nil {
		return err
	}
	for _, pet := range list {
		shelter := ""
		if pet.Shelter != nil {
			shelter = " @ " + pet.Shelter.Name
		}
		fmt.Printf("%s  %s (%s, %s %s)%s\n", pet.ID, pet.Name, pet.Breed, pet.Age, pet.AgeUnit, shelter)
	}
	return nil
}

func (a *app) cmdPet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pet <id>")
	}
	pet, err := a.pets.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if pet == nil {
		fmt.Println("pet not found")
		return nil
	}
	return printJSON(pet)
}

func (a *app) cmdFavs(ctx context.Context) error {
	list, err := a.favorites.List(ctx)
	if err != nil {
		return err
	}
	for _, pet := range list {
		fmt.Printf("%s  %s (%s)\n", pet.ID, pet.Name, pet.Breed)
	}
	return nil
}

func (a *app) cmdFav(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: fav <pet-id>")
	}
	on, err := a.favorites.Toggle(ctx, args[0])
	if err != nil {
		return err
	}
	if on {
		fmt.Println("favorited")
	} else {
		fmt.Println("unfavorited")
	}
	return nil
}

func (a *app) cmdAvatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: avatar <image-file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	publicURL, err := a.users.UploadAvatar(ctx, filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	fmt.Println(publicURL)
	return nil
}

func (a *app) cmdApply(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: apply <pet-id> <form.json>")
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read form: %w", err)
	}
	var form domain.ApplicationForm
	if err := json.Unmarshal(data, &form); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	app, err := a.applications.Submit(ctx, args[0], form)
	if err != nil {
		return err
	}
	if app != nil {
		fmt.Printf("application %s submitted\n", app.ID)
	}
	return nil
}

func (a *app) cmdApplications(ctx context.Context) error {
	apps, err := a.applications.Mine(ctx)
	if err != nil {
		return err
	}
	for _, app := range apps {
		pet := app.PetID
		if app.Pet != nil {
			pet = app.Pet.Name
		}
		fmt.Printf("%s  %s  %s\n", app.ID, pet, app.Status)
	}
	return nil
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cancel <application-id>")
	}
	return a.applications.Cancel(ctx, args[0])
}

func (a *app) cmdNotifications(ctx context.Context) error {
	list, err := a.notifications.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range list {
		marker := " "
		if !n.IsRead {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, n.Title, n.Message)
	}
	return nil
}

func (a *app) cmdWatch(ctx context.Context) error {
	poller, err := a.notifications.Subscribe(ctx, a.cfg.PollInterval, func(n domain.Notification) {
		fmt.Printf("%s  %s\n", n.Title, n.Message)
	})
	if err != nil {
		return err
	}
	defer poller.Stop()
	<-ctx.Done()
	return nil
}

func (a *app) cmdChat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: chat <shelter-id>")
	}
	conv, err := a.chat.GetOrCreateConversation(ctx, args[0])
	if err != nil {
		return err
	}
	messages, err := a.chat.Messages(ctx, conv.ID)
	if err != nil {
		return err
	}
	fmt.Printf("conversation %s\n", conv.ID)
	for _, msg := range messages {
		fmt.Printf("[%s] %s\n", msg.SenderType, msg.Content)
	}
	return nil
}

func (a *app) cmdSend(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: send <conversation-id> <text>")
	}
	msg, err := a.chat.Send(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if msg != nil {
		fmt.Printf("sent %s\n", msg.ID)
	}
	return nil
}

func (a *app) cmdAdmin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: admin users|pets|applications")
	}
	switch args[0] {
	case "users":
		list, err := a.admin.Users(ctx)
		if err != nil {
			return err
		}
		for _, u := range list {
			fmt.Printf("%s  %s  %s\n", u.ID, u.Name, u.Email)
		}
	case "pets":
		list, err := a.admin.Pets(ctx)
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Printf("%s  %s (%s)\n", p.ID, p.Name, p.Category)
		}
	case "applications":
		list, err := a.admin.Applications(ctx)
		if err != nil {
			return err
		}
		for _, app := range list {
			applicant, pet := app.UserID, app.PetID
			if app.User != nil {
				applicant = app.User.Name
			}
			if app.Pet != nil {
				pet = app.Pet.Name
			}
			fmt.Printf("%s  %s -> %s  %s\n", app.ID, applicant, pet, app.Status)
		}
	default:
		return fmt.Errorf("unknown admin listing %q", args[0])
	}
	return nil
}

func (a *app) cmdReview(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: review <application-id> <approved|rejected>")
	}
	return a.admin.ReviewApplication(ctx, args[0], args[1])
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
