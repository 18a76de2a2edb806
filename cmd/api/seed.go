package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/utils"
	"github.com/harentsoaR/armline-api/internal/validator"
	"github.com/harentsoaR/armline-api/internal/workflow"
)

func seedCommand() *cobra.Command {
	var schools []string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the default categories and the given schools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			repo, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			for _, c := range workflow.DefaultCategories {
				if err := skipExisting(logger, "category", c.Name, repo.CreateCategory(ctx, &c)); err != nil {
					return err
				}
			}
			for _, name := range schools {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				if err := skipExisting(logger, "school", name, repo.CreateSchool(ctx, &models.School{Name: name})); err != nil {
					return err
				}
			}
			logger.Info("seed finished")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&schools, "school", nil, "school name to insert, repeatable")
	return cmd
}

func skipExisting(logger *zap.Logger, kind, name string, err error) error {
	switch {
	case err == nil:
		logger.Info("created "+kind, zap.String("name", name))
	case errors.Is(err, repository.ErrAlreadyExists):
		logger.Info(kind+" already exists", zap.String("name", name))
	default:
		return fmt.Errorf("create %s %q: %w", kind, name, err)
	}
	return nil
}

func superAdminCommand() *cobra.Command {
	var (
		name     string
		email    string
		password string
		school   string
	)

	cmd := &cobra.Command{
		Use:   "superadmin",
		Short: "Create an approved super administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" || password == "" || school == "" {
				return errors.New("--name, --email, --password and --school are required")
			}
			if len(password) < validator.MinPasswordLength {
				return fmt.Errorf("password must be at least %d characters", validator.MinPasswordLength)
			}

			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := context.Background()
			repo, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			hash, err := utils.HashPassword(password)
			if err != nil {
				return err
			}
			now := time.Now()
			u := &models.User{
				FullName:        name,
				Email:           email,
				Password:        hash,
				Role:            models.RoleSuperAdmin,
				UserType:        models.UserTypeLabel(models.RoleSuperAdmin),
				School:          school,
				Status:          models.AccountApproved,
				EmailVerified:   true,
				CreatedAt:       now,
				StatusUpdatedAt: &now,
			}
			if err := repo.CreateUser(ctx, u); err != nil {
				if errors.Is(err, repository.ErrAlreadyExists) {
					return fmt.Errorf("an account with email %s already exists", email)
				}
				return err
			}
			logger.Info("super administrator created", zap.String("id", u.ID.Hex()), zap.String("school", school))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "full name")
	flags.StringVar(&email, "email", "", "login email")
	flags.StringVar(&password, "password", "", "login password")
	flags.StringVar(&school, "school", "", "school the account administers")
	return cmd
}
