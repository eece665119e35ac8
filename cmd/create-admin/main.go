package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ecobridge/ecobridge-server/internal/auth"
	"github.com/ecobridge/ecobridge-server/pkg/config"
	"github.com/ecobridge/ecobridge-server/pkg/db"
	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/security"
)

const generatedPasswordLen = 20

func main() {
	logg := logger.New(logger.Options{ServiceName: "create-admin"})

	_ = godotenv.Load()

	username := flag.String("username", "", "admin username")
	email := flag.String("email", "", "admin email")
	phone := flag.String("phone", "", "admin phone number")
	password := flag.String("password", os.Getenv("ECOBRIDGE_ADMIN_PASSWORD"), "admin password (defaults to ECOBRIDGE_ADMIN_PASSWORD, generated when empty)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "create-admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"username": *username,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	svc, err := auth.NewAdminRegisterService(auth.AdminRegisterServiceParams{
		DB:               dbClient,
		PasswordConfig:   cfg.Password,
		DefaultAvatarURL: cfg.Media.DefaultAvatarURL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create admin register service", err)
		os.Exit(1)
	}

	generated := false
	if *password == "" {
		temp, err := security.GenerateTempPassword(generatedPasswordLen)
		if err != nil {
			logg.Error(ctx, "failed to generate admin password", err)
			os.Exit(1)
		}
		*password = temp
		generated = true
	}

	user, err := svc.Register(ctx, auth.AdminRegisterRequest{
		Username: *username,
		Email:    *email,
		Phone:    *phone,
		Password: *password,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
			fmt.Fprintf(os.Stderr, "cannot create admin: %s\n", typed.Message())
			os.Exit(2)
		}
		logg.Error(ctx, "failed to create admin", err)
		os.Exit(1)
	}

	logg.Info(logg.WithUserID(ctx, user.ID.String()), "admin user created")
	fmt.Printf("created admin %s (%s)\n", user.Username, user.ID)
	if generated {
		fmt.Printf("generated password: %s\n", *password)
	}
}
