package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	internalauth "protospace/internal/auth"
	"protospace/internal/config"
	"protospace/internal/core"
)

// seedFile is the YAML layout accepted by `protospace seed`. Image paths are
// relative to the seed file.
type seedFile struct {
	Users      []seedUser      `yaml:"users"`
	Prototypes []seedPrototype `yaml:"prototypes"`
}

type seedUser struct {
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	Profile    string `yaml:"profile"`
	Occupation string `yaml:"occupation"`
	Position   string `yaml:"position"`
}

type seedPrototype struct {
	Owner     string   `yaml:"owner"`
	Title     string   `yaml:"title"`
	CatchCopy string   `yaml:"catch_copy"`
	Concept   string   `yaml:"concept"`
	Image     string   `yaml:"image"`
	Comments  []string `yaml:"comments"`
}

type seedResult struct {
	UsersCreated      int `json:"users_created"`
	UsersSkipped      int `json:"users_skipped"`
	PrototypesCreated int `json:"prototypes_created"`
	CommentsCreated   int `json:"comments_created"`
}

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and prototypes from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := loadSeedFile(path)
			if err != nil {
				return err
			}

			rt, err := openLocalRuntime(cmd.Context(), cfg, slog.Default())
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := applySeed(cmd, rt, cfg, data, filepath.Dir(path))
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(result)
			}
			return writePlain("users: %d created, %d existing; prototypes: %d created; comments: %d created\n",
				result.UsersCreated, result.UsersSkipped, result.PrototypesCreated, result.CommentsCreated)
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "seed YAML file")
	return cmd
}

func loadSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data seedFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &data, nil
}

// applySeed registers missing users, then publishes each prototype as its
// owner through the regular submission path.
func applySeed(cmd *cobra.Command, rt *localRuntime, cfg *config.Config, data *seedFile, baseDir string) (seedResult, error) {
	ctx := cmd.Context()
	var result seedResult

	for _, u := range data.Users {
		exists, err := rt.store.EmailExists(ctx, u.Email)
		if err != nil {
			return result, err
		}
		if exists {
			result.UsersSkipped++
			continue
		}
		if _, err := registerUser(cmd, rt.store, cfg, internalauth.Registration{
			Email:                u.Email,
			Password:             u.Password,
			PasswordConfirmation: u.Password,
			Name:                 u.Name,
			Profile:              u.Profile,
			Occupation:           u.Occupation,
			Position:             u.Position,
		}); err != nil {
			return result, err
		}
		result.UsersCreated++
	}

	for i, p := range data.Prototypes {
		owner, err := rt.store.GetUserByEmail(ctx, internalauth.NormalizeEmail(p.Owner))
		if err != nil {
			return result, err
		}
		if owner == nil {
			return result, fmt.Errorf("prototype %d: unknown owner %q", i+1, p.Owner)
		}

		fields, err := seedFields(p, baseDir)
		if err != nil {
			return result, fmt.Errorf("prototype %d: %w", i+1, err)
		}
		identity := core.AuthenticatedAs(owner.ID)
		outcome, err := rt.service.SubmitCreate(ctx, identity, fields)
		if err != nil {
			return result, err
		}
		if !outcome.Committed() {
			return result, fmt.Errorf("prototype %d (%s): %w", i+1, p.Title, outcome.Err)
		}
		result.PrototypesCreated++

		for _, text := range p.Comments {
			commentOutcome, err := rt.service.SubmitComment(ctx, identity, outcome.PrototypeID, text)
			if err != nil {
				return result, err
			}
			if !commentOutcome.Committed() {
				return result, fmt.Errorf("prototype %d comment: %w", i+1, commentOutcome.Err)
			}
			result.CommentsCreated++
		}
	}
	return result, nil
}

func seedFields(p seedPrototype, baseDir string) (core.PrototypeFields, error) {
	fields := core.PrototypeFields{
		Title:     core.Some(p.Title),
		CatchCopy: core.Some(p.CatchCopy),
		Concept:   core.Some(p.Concept),
	}
	if strings.TrimSpace(p.Image) == "" {
		return fields, nil
	}
	imagePath := p.Image
	if !filepath.IsAbs(imagePath) {
		imagePath = filepath.Join(baseDir, imagePath)
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fields, fmt.Errorf("read image: %w", err)
	}
	fields.Image = core.Some(core.Upload{Filename: filepath.Base(imagePath), Data: data})
	return fields, nil
}
