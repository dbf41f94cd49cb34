package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/enigmatch/enigmatch/internal/auth"
	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/reputation"
	"github.com/enigmatch/enigmatch/internal/repository"
	"github.com/enigmatch/enigmatch/internal/service"
)

// seedPassword is shared by every sample profile.
const seedPassword = "password123"

type seedProfile struct {
	username string
	name     string
	age      int
	title    string
	bio      string
	image    string
	distance int
	tags     []string
}

var seedProfiles = []seedProfile{
	{"elara", "Elara", 27, "Elven Sorceress",
		"I craft arcane spells and solve ancient mysteries. Looking for a worthy challenger to match wits!",
		"https://images.unsplash.com/photo-1535324492437-d8dea70a38a7?auto=format&fit=crop&w=800&h=600",
		2, []string{"Magic", "Riddles", "Ancient Lore", "Spellcraft"}},
	{"thorne", "Thorne", 32, "Dwarven Riddlemaster",
		"Master of stone and metal, crafter of the most complex riddles. Can you solve my puzzles?",
		"https://images.unsplash.com/photo-1560173045-beaf11c65dce?auto=format&fit=crop&w=800&h=600",
		5, []string{"Riddles", "Mining", "Crafting", "Ale"}},
	{"orianna", "Orianna", 24, "Mystic Oracle",
		"I see beyond the veil of time. Let's unravel the mysteries of the universe together.",
		"https://images.unsplash.com/photo-1566577739112-5180d4bf9390?auto=format&fit=crop&w=800&h=600",
		3, []string{"Divination", "Mysteries", "Stargazing", "Puzzles"}},
	{"garrick", "Garrick", 30, "Forest Sentinel",
		"Guardian of the ancient forests, protector of sacred riddles. Test your wisdom against nature's challenges.",
		"https://images.unsplash.com/photo-1610228064197-71477e3b6e08?auto=format&fit=crop&w=800&h=600",
		10, []string{"Nature", "Tracking", "Wisdom", "Survival"}},
	{"lyra", "Lyra", 26, "Melodic Enigmatist",
		"My melodies enchant and my riddles challenge. Let's create harmony through puzzles and music.",
		"https://images.unsplash.com/photo-1557296387-5358ad7997bb?auto=format&fit=crop&w=800&h=600",
		7, []string{"Music", "Poetry", "Puzzles", "Enchantment"}},
	{"voltar", "Voltar", 35, "Flame Wizard",
		"Master of elemental fire and logic puzzles. Can you withstand the heat of my challenges?",
		"https://images.unsplash.com/photo-1618077360466-f4cc5be24fe0?auto=format&fit=crop&w=800&h=600",
		15, []string{"Fire Magic", "Logic", "Elements", "Strategy"}},
	{"selene", "Selene", 29, "Lunar Priestess",
		"Priestess of the moon, keeper of celestial puzzles. Navigate the night's mysteries with me.",
		"https://images.unsplash.com/photo-1563620434840-30561bedd697?auto=format&fit=crop&w=800&h=600",
		8, []string{"Astronomy", "Rituals", "Moon Magic", "Mysteries"}},
	{"draven", "Draven", 31, "Noble Knight",
		"Knight of the realm, defender of truth. My sword is sharp, but my mind is sharper.",
		"https://images.unsplash.com/photo-1594736797933-d0501ba2fe65?auto=format&fit=crop&w=800&h=600",
		12, []string{"Combat", "Honor", "Strategy", "Chivalry"}},
}

func (p seedProfile) input() service.RegisterInput {
	title, bio, distance := p.title, p.bio, p.distance
	return service.RegisterInput{
		Username: p.username,
		Password: seedPassword,
		Name:     p.name,
		Age:      p.age,
		Bio:      &bio,
		Title:    &title,
		Image:    p.image,
		Distance: &distance,
		Tags:     p.tags,
	}
}

type seedResult struct {
	Created int
	Skipped int
}

// seedUsers registers every sample profile. Profiles whose username already
// exists are skipped, so the command can be rerun.
func seedUsers(ctx context.Context, users *service.UserService, logger *slog.Logger) (seedResult, error) {
	var res seedResult
	for _, p := range seedProfiles {
		u, err := users.Register(ctx, p.input())
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			res.Skipped++
			logger.Debug("seed user exists", "username", p.username)
		case err != nil:
			return res, fmt.Errorf("seed %s: %w", p.username, err)
		default:
			res.Created++
			logger.Info("seed user created", "username", u.Username, "user_id", u.ID)
		}
	}
	return res, nil
}

func newSeedCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Register the sample profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			logger := root.logger()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			repo, err := repository.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer repo.Close()

			clk := clock.System{}
			rules := reputation.Rules{
				Initial:      cfg.ScoreInitial,
				LikeDelta:    cfg.ScoreLikeIncrement,
				DislikeDelta: cfg.ScoreDislikeDecrement,
				Floor:        cfg.ScoreFloor,
			}
			l := ledger.New(repo, clk, cfg.DailyCreditAllowance, cfg.CreditResetInterval)
			users := service.NewUserService(repo, l, rules, auth.NewHasher(auth.DefaultParams), clk, logger, cfg.StorageTimeout)

			res, err := seedUsers(ctx, users, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users (%d already present)\n", res.Created, res.Skipped)
			return nil
		},
	}
}
