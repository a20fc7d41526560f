package cmd

import (
	"fmt"

	"eventease/config"
	"eventease/internal/adapters/auth"
	"eventease/internal/domain"
	"eventease/internal/repository/postgres"
	"eventease/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var adminInput domain.SignUpInput

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative account tasks",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account directly in the database. Sign-up never grants the
admin role, so the first admin is created here.

Example:
  eventease admin create --name "Ada" --email ada@campus.edu --password 's3cret-pass'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		db, err := openDB(cmd.Context(), cfg.DBUrl)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := services.NewUserService(
			postgres.NewUserRepository(db),
			auth.NewBcryptHasher(bcrypt.DefaultCost),
			auth.NewJWTManager(cfg.JWTSecret),
			cfg.JWTExpiry,
			cfg.ContextTimeout,
		)
		in := adminInput
		in.Role = domain.RoleAdmin
		user, err := svc.CreateUser(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		cmd.Printf("created admin %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	flags := adminCreateCmd.Flags()
	flags.StringVar(&adminInput.Name, "name", "", "display name")
	flags.StringVar(&adminInput.Email, "email", "", "login email")
	flags.StringVar(&adminInput.Password, "password", "", "password (at least 8 characters)")
	flags.StringVar(&adminInput.Department, "department", "", "department (optional)")
	_ = adminCreateCmd.MarkFlagRequired("name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(adminCreateCmd)
}
