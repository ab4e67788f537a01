package cmd

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/psds-microservice/checkin-scanner/internal/config"
	"github.com/psds-microservice/checkin-scanner/internal/database"
	"github.com/psds-microservice/checkin-scanner/internal/scannerapi"
	"github.com/psds-microservice/checkin-scanner/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginOTP string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange an OTP for a session and store it locally",
	RunE:  runLogin,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events of the logged-in organizer (running first)",
	RunE:  runEvents,
}

func init() {
	loginCmd.Flags().StringVar(&loginOTP, "otp", "", "10-digit access code")
	_ = loginCmd.MarkFlagRequired("otp")
}

// operatorServices opens the session store and the scanner API client.
func operatorServices(cfg *config.Config, logger *zap.Logger) (*service.SessionService, *service.EventService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DB.Driver, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	api := scannerapi.NewClient(cfg.ScannerAPIURL, &http.Client{Timeout: cfg.ScannerAPITimeout}, logger)
	sessions := service.NewSessionService(db, api, logger)
	return sessions, service.NewEventService(api, sessions, cfg.AttendeesPageSize), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	sessions, _, err := operatorServices(cfg, logger)
	if err != nil {
		return err
	}
	sess, err := sessions.Login(cmd.Context(), loginOTP)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in, session %s\n", sess.ID)
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	_, events, err := operatorServices(cfg, logger)
	if err != nil {
		return err
	}
	list, err := events.Events(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSTART\tSCANNED")
	for _, e := range list {
		status := "Past"
		if e.Running() {
			status = "Running"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\n", e.ID, e.Name, status, e.StartDate, e.ScannedTickets, e.TotalTickets)
	}
	return w.Flush()
}
