package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"protospace/internal/api"
	internalauth "protospace/internal/auth"
	"protospace/internal/config"
	"protospace/internal/format"
	"protospace/internal/models"
	"protospace/internal/server"
	"protospace/internal/store"
)

func newUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered users",
	}
	cmd.AddCommand(newUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newUserListCmd(cfg, jsonOutput))
	return cmd
}

func newUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		reg           internalauth.Registration
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Register one user without the web sign-up form",
		Args:  requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			reg.Email = args[0]
			reg.Password = password
			reg.PasswordConfirmation = password

			st, err := openUserStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := registerUser(cmd, st, cfg, reg)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(userRow(*user))
			}
			return writePlain("created user %s (%s)\n", user.Email, user.ID)
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&reg.Profile, "profile", "", "profile text (required)")
	cmd.Flags().StringVar(&reg.Occupation, "occupation", "", "occupation (required)")
	cmd.Flags().StringVar(&reg.Position, "position", "", "position (required)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func newUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openUserStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]userListRow, 0, len(users))
			for _, u := range users {
				rows = append(rows, userRow(u))
			}
			if *jsonOutput {
				return writeJSON(map[string]any{"count": len(rows), "users": rows})
			}
			if len(rows) == 0 {
				return writePlain("no users registered\n")
			}
			for _, row := range rows {
				if err := writePlain("%s\t%s\n", row.Email, format.UserLine(api.User{ID: row.ID, Name: row.Name, Occupation: row.Occupation, Position: row.Position})); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

type userListRow struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Occupation string    `json:"occupation,omitempty"`
	Position   string    `json:"position,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func userRow(u models.User) userListRow {
	return userListRow{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Occupation: u.Occupation,
		Position:   u.Position,
		CreatedAt:  u.CreatedAt,
	}
}

func openUserStore(cfg *config.Config) (*store.Store, error) {
	if cfg == nil || cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	return store.Open(cfg.DBPath)
}

// registerUser applies the same validation as the sign-up form.
func registerUser(cmd *cobra.Command, users store.UserStore, cfg *config.Config, reg internalauth.Registration) (*models.User, error) {
	auth := server.NewAuthService(users, cfg.SessionTTL.Duration)
	user, err := auth.Register(cmd.Context(), reg, time.Now().UTC())
	var regErr *internalauth.RegistrationError
	if errors.As(err, &regErr) {
		return nil, fmt.Errorf("invalid user %s: %s", strings.TrimSpace(reg.Email), strings.Join(regErr.Messages(), "; "))
	}
	return user, err
}

func readPassword(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "", err
	}
	password := strings.TrimRight(string(data), "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required on stdin")
	}
	return password, nil
}
