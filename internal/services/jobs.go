// Package services – JobService
//
// This file implements asynchronous whole-entity translation. Submit stores
// a queued job (and, with an idempotency key, the record that lets retries
// replay it) and hands it to the task dispatcher; the job then reports each
// field outcome and its final state as progress events.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/progress"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/tasks"
)

// JobRunner queues background work; tasks.Dispatcher implements it.
type JobRunner interface {
	Submit(name string, fn tasks.Func) error
}

// Publisher receives progress events; progress.Hub implements it.
type Publisher interface {
	Publish(ev progress.Event)
}

// JobService runs whole-entity translations in the background and reports
// their progress.
type JobService struct {
	// DB is the GORM handle used for jobs and idempotency records.
	DB *gorm.DB
	// Translator does the per-field work of a job.
	Translator *TranslationService
	// Runner executes queued jobs in the background.
	Runner JobRunner
	// Events receives field and done events. May be nil.
	Events Publisher
	// IdempotencyTTL bounds how long a retried key replays its job.
	IdempotencyTTL time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
}

func (s *JobService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit creates a queued job for the entity and hands it to the runner.
// With a non-empty idemKey a retry within the TTL returns the job created by
// the first request and replayed=true.
func (s *JobService) Submit(ctx context.Context, userID, entityID, targetLang, idemKey string) (job *domain.TranslationJob, replayed bool, err error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Submit", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("entity.id", entityID),
		attribute.String("target_lang", targetLang),
		attribute.Bool("idempotent", idemKey != ""),
	))
	defer span.End()

	if idemKey != "" {
		if j, ok, err := s.replay(ctx, userID, entityID, idemKey); err != nil || ok {
			return j, ok, err
		}
	}

	e, err := repo.GetEntity(ctx, s.DB, entityID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, ErrEntityNotFound
	}
	if err != nil {
		return nil, false, err
	}
	target, err := s.Translator.Languages.Target(ctx, targetLang)
	if err != nil {
		return nil, false, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := repo.CreateJob(ctx, tx, userID, e.ID, target.Code, len(entityFields(e)))
		if err != nil {
			return err
		}
		if idemKey != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, userID, e.ID, idemKey, j.ID, http.StatusAccepted, s.ttl()); err != nil {
				return err
			}
		}
		job = j
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key won.
		j, ok, rerr := s.replay(ctx, userID, entityID, idemKey)
		if rerr != nil {
			return nil, false, rerr
		}
		if ok {
			return j, true, nil
		}
	}
	if err != nil {
		return nil, false, err
	}

	jobID := job.ID
	if err := s.Runner.Submit("job:"+jobID, func(ctx context.Context) error {
		return s.run(ctx, jobID, userID)
	}); err != nil {
		s.finish(context.Background(), job, nil, err)
		return nil, false, err
	}
	log.Info().Str("job_id", jobID).Str("entity_id", e.ID).Str("target_lang", target.Code).Msg("translation job queued")
	return job, false, nil
}

func (s *JobService) replay(ctx context.Context, userID, entityID, key string) (*domain.TranslationJob, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, entityID, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	j, err := repo.GetJob(ctx, s.DB, rec.ResourceID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return j, true, nil
}

func (s *JobService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

// Get returns a job owned by userID.
func (s *JobService) Get(ctx context.Context, id, userID string) (*domain.TranslationJob, error) {
	j, err := repo.GetJob(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	return j, err
}

func (s *JobService) run(ctx context.Context, jobID, userID string) error {
	job, err := repo.GetJob(ctx, s.DB, jobID, userID)
	if err != nil {
		return err
	}
	started := s.now()
	job.Status = domain.JobRunning
	job.StartedAt = &started
	if err := repo.SaveJob(ctx, s.DB, job); err != nil {
		return err
	}

	res, err := s.Translator.TranslateEntity(ctx, EntityRequest{
		UserID:     userID,
		EntityID:   job.EntityID,
		TargetLang: job.TargetLang,
	}, func(o FieldOutcome, sofar BulkResult) {
		job.Translated, job.Failed, job.Skipped = sofar.Translated, sofar.Failed, sofar.Skipped
		if err := repo.SaveJob(ctx, s.DB, job); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).Msg("job progress not saved")
		}
		s.publish(progress.Event{
			Type:       progress.EventField,
			JobID:      job.ID,
			FieldKey:   o.FieldKey,
			Status:     o.Status,
			Error:      o.Error,
			Done:       sofar.Done(),
			Total:      job.Total,
			Translated: sofar.Translated,
			Failed:     sofar.Failed,
			Skipped:    sofar.Skipped,
		})
	})
	s.finish(context.WithoutCancel(ctx), job, res, err)
	return err
}

// finish records the final state of job and publishes the done event.
func (s *JobService) finish(ctx context.Context, job *domain.TranslationJob, res *BulkResult, err error) {
	done := s.now()
	job.FinishedAt = &done
	if res != nil {
		job.Total, job.Translated, job.Failed, job.Skipped = res.Total, res.Translated, res.Failed, res.Skipped
		if len(res.Errors) > 0 {
			m := make(datatypes.JSONMap, len(res.Errors))
			for k, v := range res.Errors {
				m[k] = v
			}
			job.Errors = m
		}
	}
	job.Status = domain.JobCompleted
	if err != nil {
		job.Status = domain.JobFailed
		job.Error = err.Error()
	}
	if serr := repo.SaveJob(ctx, s.DB, job); serr != nil {
		log.Error().Err(serr).Str("job_id", job.ID).Msg("job result not saved")
	}
	s.publish(JobEvent(job))
}

func (s *JobService) publish(ev progress.Event) {
	if s.Events != nil {
		s.Events.Publish(ev)
	}
}

// JobEvent renders the current state of job as a progress event: a done
// event once the job is final, a field event without a key before that.
func JobEvent(j *domain.TranslationJob) progress.Event {
	ev := progress.Event{
		Type:       progress.EventField,
		JobID:      j.ID,
		Status:     string(j.Status),
		Error:      j.Error,
		Done:       j.Processed(),
		Total:      j.Total,
		Translated: j.Translated,
		Failed:     j.Failed,
		Skipped:    j.Skipped,
	}
	if j.Done() {
		ev.Type = progress.EventDone
		ev.Done = j.Total
	}
	return ev
}
