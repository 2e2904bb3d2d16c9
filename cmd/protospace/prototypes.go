package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"protospace/internal/api"
	"protospace/internal/config"
)

func newLoginCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange email and password for an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.IssueToken(cmd.Context(), api.TokenRequest{Email: email, Password: password})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("export PROTOSPACE_API_TOKEN=%s\n", resp.Token)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prototypes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var prototypes []api.Prototype
				if userID != "" {
					page, err := client.GetUser(cmd.Context(), userID)
					if err != nil {
						return err
					}
					prototypes = page.Prototypes
				} else {
					var err error
					if prototypes, err = client.ListPrototypes(cmd.Context()); err != nil {
						return err
					}
				}
				if *jsonOutput {
					return writeJSON(prototypes)
				}
				return writePrototypeList(prototypes)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only list prototypes owned by this user id")
	return cmd
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one prototype with its comments",
		Args:  requireID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				detail, err := client.GetPrototype(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(detail)
				}
				return writePrototypeDetail(detail)
			})
		},
	}
}

// prototypeFlags binds the submission flags. Only flags given on the command
// line are sent, so an omitted flag keeps the stored value on edit while
// `--concept ""` submits an empty concept.
type prototypeFlags struct {
	title     string
	catchCopy string
	concept   string
	image     string
}

func (f *prototypeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "prototype title")
	cmd.Flags().StringVar(&f.catchCopy, "catch-copy", "", "catch copy")
	cmd.Flags().StringVar(&f.concept, "concept", "", "concept")
	cmd.Flags().StringVar(&f.image, "image", "", "path to the image file")
}

// form builds the submission. The returned closer releases the image file.
func (f *prototypeFlags) form(cmd *cobra.Command) (api.PrototypeForm, func(), error) {
	var form api.PrototypeForm
	flags := cmd.Flags()
	if flags.Changed("title") {
		form.Title = &f.title
	}
	if flags.Changed("catch-copy") {
		form.CatchCopy = &f.catchCopy
	}
	if flags.Changed("concept") {
		form.Concept = &f.concept
	}
	if !flags.Changed("image") {
		return form, func() {}, nil
	}

	file, err := os.Open(f.image)
	if err != nil {
		return form, nil, fmt.Errorf("open image: %w", err)
	}
	form.Image = &api.ImagePart{Filename: filepath.Base(f.image), Data: file}
	return form, func() { _ = file.Close() }, nil
}

func newPostCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var flags prototypeFlags

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a new prototype",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, closeImage, err := flags.form(cmd)
			if err != nil {
				return err
			}
			defer closeImage()

			return withClient(cfg, func(client *api.Client) error {
				created, err := client.CreatePrototype(cmd.Context(), form)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(created)
				}
				return writePlain("created prototype %s\n", created.ID)
			})
		},
	}

	flags.bind(cmd)
	return cmd
}

func newEditCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var flags prototypeFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update fields of a prototype you own",
		Args:  requireID,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, closeImage, err := flags.form(cmd)
			if err != nil {
				return err
			}
			defer closeImage()

			return withClient(cfg, func(client *api.Client) error {
				updated, err := client.UpdatePrototype(cmd.Context(), args[0], form)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(updated)
				}
				return writePlain("updated prototype %s\n", updated.ID)
			})
		},
	}

	flags.bind(cmd)
	return cmd
}

func newDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a prototype you own and its comments",
		Args:    requireID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if err := client.DeletePrototype(cmd.Context(), args[0]); err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"id": args[0], "deleted": true})
				}
				return writePlain("deleted prototype %s\n", args[0])
			})
		},
	}
}

func newCommentCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Comment on a prototype",
		Args:  requireExactlyArgs(2, "prototype id and comment text are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				detail, err := client.CreateComment(cmd.Context(), args[0], api.CommentCreateRequest{Text: args[1]})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(detail)
				}
				return writePrototypeDetail(detail)
			})
		},
	}
}
