package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/circle/internal/auth"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/models"
	"github.com/zfogg/circle/internal/repository"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Look up users",
}

var usersSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users by nickname",
	Long: `Search users by nickname, most followed first.

Examples:
  circlectl users search "ali"
  circlectl users search "ali" --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		users, err := repository.NewUserRepository(database.DB).SearchUsers(cmd.Context(), args[0], limit, offset)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(users)
		}
		if len(users) == 0 {
			fmt.Println("No users found")
			return nil
		}
		for _, u := range users {
			fmt.Printf("%s  %-24s followers=%d following=%d posts=%d\n",
				u.ID, u.Nickname, u.FollowersCount, u.FollowingCount, u.PostsCount)
		}
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <nickname|email>",
	Short: "Issue an access token for a user",
	Long: `Sign an access token for an existing user with JWT_SECRET.
Useful for calling the API by hand in development.

Examples:
  circlectl token alice
  circlectl token alice@example.com --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		users := repository.NewUserRepository(database.DB)
		var user *models.User
		var err error
		if strings.Contains(args[0], "@") {
			user, err = users.GetUserByEmail(cmd.Context(), args[0])
		} else {
			user, err = users.GetUserByNickname(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		tokens, err := auth.NewService(cfg.JWTSecret, ttl)
		if err != nil {
			return err
		}
		resp, err := tokens.GenerateToken(user)
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(resp)
		}
		fmt.Println(resp.Token)
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersSearchCmd)

	usersSearchCmd.Flags().IntP("limit", "l", 20, "Maximum number of results")
	usersSearchCmd.Flags().IntP("offset", "o", 0, "Number of results to skip")

	tokenCmd.Flags().Duration("ttl", auth.DefaultTokenTTL, "Token lifetime")
}
