package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ingabireol/bizclient/pkg/auth"
	"github.com/ingabireol/bizclient/pkg/config"
	"github.com/ingabireol/bizclient/pkg/connection"
	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/gateway"
	"github.com/ingabireol/bizclient/pkg/logging"
	"github.com/ingabireol/bizclient/pkg/tasks"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	ConfigPath   string `long:"config" description:"Path to the client configuration file"`
	DirectoryURL string `long:"directory" description:"Service directory URL (overrides config)"`
	Username     string `long:"username" description:"Username for login"`
	Email        string `long:"email" description:"Email for one-time-code login or password reset"`
	Verbose      bool   `short:"v" long:"verbose" description:"Verbose logging"`
	Args         struct {
		Command string   `positional-arg-name:"command" description:"login | otp | reset-password | services | status | reconnect | list | search"`
		Rest    []string `positional-arg-name:"args"`
	} `positional-args:"yes"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)

	_, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	if opts.Args.Command == "" {
		fmt.Fprintln(os.Stderr, "A command is required: login | otp | reset-password | services | status | reconnect | list | search")
		os.Exit(1)
	}

	zapLogger, err := logging.NewStdZapLogger(opts.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger("[bizctl] ", logging.LogFuncs{
		Debugf: zapLogger.Debugf,
		Infof:  zapLogger.Infof,
		Warnf:  zapLogger.Warnf,
		Errorf: zapLogger.Errorf,
	})

	clientConfig := loadConfig(opts, logger)

	manager := connection.NewManager(clientConfig.ManagerOptions(logger))
	defer manager.Close()

	session := auth.NewSession()

	ctx := context.Background()

	if !manager.InitializeConnection(ctx) {
		logger.Warnf("Service directory is not reachable, retrying with backoff...")
		if err := manager.ReconnectWithRetry(ctx); err != nil {
			logger.Errorf("Could not reach the service directory: %v", err)
			os.Exit(1)
		}
	}

	if !runCommand(ctx, opts, manager, session, logger) {
		os.Exit(1)
	}
}

func loadConfig(opts flagOptions, logger logging.Logger) *config.ClientConfig {
	var clientConfig *config.ClientConfig

	if opts.ConfigPath != "" {
		loaded, err := config.LoadConfigFromFile(opts.ConfigPath)
		if err != nil {
			logger.Errorf("Failed to load configuration: %v", err)
			os.Exit(1)
		}
		clientConfig = loaded
	} else {
		clientConfig = &config.ClientConfig{}
		if err := config.ValidateConfig(clientConfig); err != nil {
			clientConfig.Client.DirectoryURL = "tcp://127.0.0.1:18099"
		}
	}

	if opts.DirectoryURL != "" {
		clientConfig.Client.DirectoryURL = opts.DirectoryURL
	}

	return clientConfig
}

func runCommand(ctx context.Context, opts flagOptions, manager *connection.Manager, session *auth.Session, logger logging.Logger) bool {
	users := gateway.NewUserGateway(manager, session, logger)

	switch opts.Args.Command {
	case "login":
		return runLogin(ctx, opts, users, logger)
	case "otp":
		return runOneTimeCode(ctx, opts, users, logger)
	case "reset-password":
		return runPasswordReset(ctx, opts, users, logger)
	case "services":
		return runServices(ctx, manager, logger)
	case "status":
		return runStatus(ctx, manager, logger)
	case "reconnect":
		return runReconnect(ctx, manager, logger)
	case "list":
		return runList(ctx, opts, manager, session, logger)
	case "search":
		return runSearch(ctx, opts, manager, session, logger)
	default:
		logger.Errorf("Unknown command: %s", opts.Args.Command)
		return false
	}
}

func runLogin(ctx context.Context, opts flagOptions, users *gateway.UserGateway, logger logging.Logger) bool {
	if opts.Username == "" {
		logger.Errorf("login requires --username")
		return false
	}

	password, ok := promptSecret("Password: ")
	if !ok {
		return false
	}

	user, err := users.Authenticate(ctx, opts.Username, password)
	if err != nil {
		logger.Errorf("Login failed: %v", err)
		return false
	}

	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Role)
	return true
}

func runOneTimeCode(ctx context.Context, opts flagOptions, users *gateway.UserGateway, logger logging.Logger) bool {
	if opts.Email == "" {
		logger.Errorf("otp requires --email")
		return false
	}

	challengeID, err := users.RequestOneTimeCode(ctx, opts.Email)
	if err != nil {
		logger.Errorf("Failed to request one-time code: %v", err)
		return false
	}

	fmt.Printf("A one-time code was sent to %s\n", opts.Email)
	code, ok := promptSecret("Code: ")
	if !ok {
		return false
	}

	user, err := users.VerifyOneTimeCode(ctx, challengeID, code)
	if err != nil {
		logger.Errorf("Code verification failed: %v", err)
		return false
	}

	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Role)
	return true
}

func runPasswordReset(ctx context.Context, opts flagOptions, users *gateway.UserGateway, logger logging.Logger) bool {
	if opts.Email == "" {
		logger.Errorf("reset-password requires --email")
		return false
	}

	if err := users.ResetPasswordByEmail(ctx, opts.Email); err != nil {
		logger.Errorf("Password reset failed: %v", err)
		return false
	}

	fmt.Printf("Password reset instructions were sent to %s\n", opts.Email)
	return true
}

func runServices(ctx context.Context, manager *connection.Manager, logger logging.Logger) bool {
	names := manager.ListAvailableServices(ctx)

	fmt.Printf("Bound services (%d):\n", len(names))
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}

	if manager.ValidateServices(ctx) {
		fmt.Println("All required services are bound")
		return true
	}

	fmt.Println("Some required services are missing")
	return false
}

func runStatus(ctx context.Context, manager *connection.Manager, logger logging.Logger) bool {
	if !manager.IsConnected(ctx) {
		fmt.Println("Directory: unreachable")
		return false
	}
	fmt.Println("Directory: connected")

	// Probe every required service concurrently.
	type probe struct {
		name directory.ServiceName
		task *tasks.Task[connection.Status]
	}

	probes := make([]probe, 0, len(directory.RequiredServices()))
	for _, name := range directory.RequiredServices() {
		name := name
		probes = append(probes, probe{
			name: name,
			task: tasks.Run(func() (connection.Status, error) {
				return manager.Resolve(ctx, name).Status, nil
			}),
		})
	}

	healthy := true
	for _, p := range probes {
		status, _ := p.task.Await(ctx)
		fmt.Printf("  %-10s %s\n", p.name, status)
		if status != connection.StatusResolved {
			healthy = false
		}
	}

	return healthy
}

func runReconnect(ctx context.Context, manager *connection.Manager, logger logging.Logger) bool {
	logger.Infof("Dropping cached handles and reconnecting...")

	if err := manager.ReconnectWithRetry(ctx); err != nil {
		logger.Errorf("Reconnect failed: %v", err)
		return false
	}

	fmt.Println("Reconnected")
	return runServices(ctx, manager, logger)
}

func runList(ctx context.Context, opts flagOptions, manager *connection.Manager, session *auth.Session, logger logging.Logger) bool {
	if len(opts.Args.Rest) < 1 {
		logger.Errorf("list requires an entity: customers | products | suppliers | orders | invoices | payments")
		return false
	}

	switch opts.Args.Rest[0] {
	case "customers":
		customers, err := gateway.NewCustomerGateway(manager, session, logger).FindAll(ctx)
		if err != nil {
			logger.Errorf("Failed to list customers: %v", err)
			return false
		}
		for _, c := range customers {
			fmt.Printf("%-12s %-30s %s\n", c.Code, c.Name, c.Email)
		}

	case "products":
		products, err := gateway.NewProductGateway(manager, session, logger).FindAll(ctx)
		if err != nil {
			logger.Errorf("Failed to list products: %v", err)
			return false
		}
		for _, p := range products {
			fmt.Printf("%-12s %-30s %s\n", p.SKU, p.Name, p.UnitPrice)
		}

	case "suppliers":
		suppliers, err := gateway.NewSupplierGateway(manager, session, logger).FindAll(ctx)
		if err != nil {
			logger.Errorf("Failed to list suppliers: %v", err)
			return false
		}
		for _, s := range suppliers {
			fmt.Printf("%-12s %-30s %s\n", s.Code, s.Name, s.Email)
		}

	case "orders":
		orders, err := gateway.NewOrderGateway(manager, session, logger).FindAll(ctx)
		if err != nil {
			logger.Errorf("Failed to list orders: %v", err)
			return false
		}
		for _, o := range orders {
			fmt.Printf("%-12s %-10s %s\n", o.Number, o.Status, o.Total)
		}

	case "invoices":
		invoices, err := gateway.NewInvoiceGateway(manager, session, logger).FindAll(ctx)
		if err != nil {
			logger.Errorf("Failed to list invoices: %v", err)
			return false
		}
		for _, i := range invoices {
			fmt.Printf("%-12s %-8s due %s: %s\n", i.Number, i.Status, i.DueAt.Format("2006-01-02"), i.AmountDue)
		}

	case "payments":
		payments, err := gateway.NewPaymentGateway(manager, session, logger).FindAll(ctx)
		if err != nil {
			logger.Errorf("Failed to list payments: %v", err)
			return false
		}
		for _, p := range payments {
			fmt.Printf("%-36s %-8s %s\n", p.InvoiceID, p.Method, p.Amount)
		}

	default:
		logger.Errorf("Unknown entity: %s", opts.Args.Rest[0])
		return false
	}

	return true
}

func runSearch(ctx context.Context, opts flagOptions, manager *connection.Manager, session *auth.Session, logger logging.Logger) bool {
	if len(opts.Args.Rest) < 2 {
		logger.Errorf("search requires an entity and a query, e.g.: search customers acme")
		return false
	}

	entity, query := opts.Args.Rest[0], strings.Join(opts.Args.Rest[1:], " ")

	switch entity {
	case "customers":
		customers, err := gateway.NewCustomerGateway(manager, session, logger).Search(ctx, query)
		if err != nil {
			logger.Errorf("Search failed: %v", err)
			return false
		}
		for _, c := range customers {
			fmt.Printf("%-12s %-30s %s\n", c.Code, c.Name, c.Email)
		}

	case "products":
		products, err := gateway.NewProductGateway(manager, session, logger).Search(ctx, query)
		if err != nil {
			logger.Errorf("Search failed: %v", err)
			return false
		}
		for _, p := range products {
			fmt.Printf("%-12s %-30s %s\n", p.SKU, p.Name, p.UnitPrice)
		}

	case "suppliers":
		suppliers, err := gateway.NewSupplierGateway(manager, session, logger).Search(ctx, query)
		if err != nil {
			logger.Errorf("Search failed: %v", err)
			return false
		}
		for _, s := range suppliers {
			fmt.Printf("%-12s %-30s %s\n", s.Code, s.Name, s.Email)
		}

	default:
		logger.Errorf("Unknown entity: %s", entity)
		return false
	}

	return true
}

func promptSecret(label string) (string, bool) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		return "", false
	}
	return strings.TrimSpace(line), true
}
