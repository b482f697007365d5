package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-gladiators-backend/cache"
	"auto-gladiators-backend/models"
)

// Janitor runs the periodic cleanup jobs: abandoned lobbies and stale
// errored matches.
type Janitor struct {
	DB    *gorm.DB
	Cache *cache.Cache
	Log   zerolog.Logger
	sched gocron.Scheduler
}

func NewJanitor(db *gorm.DB, c *cache.Cache, log zerolog.Logger) *Janitor {
	return &Janitor{DB: db, Cache: c, Log: log}
}

// Start schedules the cleanup jobs and returns. Call Stop on shutdown.
func (j *Janitor) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	j.sched = sched

	// Hourly: drop waiting lobbies nobody filled within a day.
	_, err = sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(j.reapAbandonedLobbies),
	)
	if err != nil {
		return err
	}

	// Every 10 minutes: errored matches older than an hour get closed out
	// so history queries stop reporting them as in flight.
	_, err = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(j.closeStaleMatches),
	)
	if err != nil {
		return err
	}

	sched.Start()
	return nil
}

func (j *Janitor) Stop() {
	if j.sched != nil {
		_ = j.sched.Shutdown()
	}
}

func (j *Janitor) reapAbandonedLobbies() {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	var stale []models.Tournament
	err := j.DB.Where("status = ? AND created_at < ?", models.TournamentWaiting, cutoff).
		Find(&stale).Error
	if err != nil {
		j.Log.Error().Err(err).Msg("janitor lobby scan failed")
		return
	}

	for _, t := range stale {
		err := j.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("tournament_id = ?", t.ID).
				Delete(&models.TournamentParticipant{}).Error; err != nil {
				return err
			}
			return tx.Delete(&t).Error
		})
		if err != nil {
			j.Log.Error().Err(err).Str("tournament_id", t.ID).Msg("janitor lobby delete failed")
			continue
		}
		j.Cache.DeleteTournamentState(context.Background(), t.ID)
		j.Log.Info().Str("tournament_id", t.ID).Msg("abandoned lobby removed")
	}
}

func (j *Janitor) closeStaleMatches() {
	cutoff := time.Now().UTC().Add(-time.Hour)

	result := j.DB.Model(&models.Match{}).
		Where("status = ? AND started_at < ?", models.MatchActive, cutoff).
		Update("status", models.MatchError)
	if result.Error != nil {
		j.Log.Error().Err(result.Error).Msg("janitor match sweep failed")
		return
	}
	if result.RowsAffected > 0 {
		j.Log.Warn().Int64("count", result.RowsAffected).Msg("stale active matches marked errored")
	}
}
