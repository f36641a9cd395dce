// cmd/admin/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/config"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/casedesk/casedesk/internal/repository"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

var rootCmd = &cobra.Command{
	Use:   "casedesk-admin",
	Short: "casedesk-admin manages the casedesk database",
	Long:  `casedesk-admin runs schema migrations and seeds bootstrap data for a casedesk deployment.`,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		db := openDB()

		if err := db.AutoMigrate(
			&model.User{},
			&model.Organization{},
			&model.Membership{},
			&model.Invite{},
			&model.AuditLog{},
		); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		fmt.Println("Migrations applied")
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [email] [password] [org-name]",
	Short: "Create a bootstrap owner user and organization",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		email, password, orgName := args[0], args[1], args[2]

		db := openDB()
		ctx := context.Background()

		hasher := auth.NewPasswordHasher()
		hash, err := hasher.Hash(password)
		if err != nil {
			log.Fatalf("Hashing password: %v", err)
		}

		userRepo := repository.NewUserRepository(db)
		orgRepo := repository.NewOrganizationRepository(db)

		user := &model.User{Email: email, Name: email, PasswordHash: hash}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("Creating user: %v", err)
		}

		org := &model.Organization{Name: orgName, Slug: orgName, CreatedByID: user.ID}
		if err := orgRepo.Create(ctx, org); err != nil {
			log.Fatalf("Creating organization: %v", err)
		}

		membership := &model.Membership{
			OrganizationID: org.ID,
			UserID:         user.ID,
			Role:           model.RoleOwner,
			Status:         model.MembershipActive,
		}
		if err := orgRepo.CreateMembership(ctx, membership); err != nil {
			log.Fatalf("Creating membership: %v", err)
		}

		fmt.Printf("Seeded owner %s for organization %s\n", user.Email, org.Name)
	},
}

func openDB() *gorm.DB {
	cfg := config.Load()

	sqlDB, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		log.Fatalf("Opening database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("Pinging database: %v", err)
	}

	gormConfig := &gorm.Config{}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
	if err != nil {
		log.Fatalf("Connecting to database: %v", err)
	}

	if verbose {
		db = db.Debug()
	}

	return db
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
