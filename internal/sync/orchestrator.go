// Package sync coordinates reconciliation passes between the local store and
// the sync server.
//
// One Orchestrator owns one session slot: a request made while a session is
// in flight is dropped, not queued. Upload and download are independent;
// a full sync runs both at once and waits for both.
//
//	Idle ──trigger──▶ Syncing ──ok──────────────────────▶ Idle
//	                     └──error──▶ Failed ──recorded──▶ Idle
//
// Failed lasts while the failure is logged and persisted; the slot is
// still taken during it. The error stays in Status afterwards.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/wordsync/internal/database"
	"github.com/example/wordsync/internal/merge"
	"github.com/example/wordsync/internal/remote"
	"github.com/example/wordsync/internal/syncerr"
	"github.com/example/wordsync/pkg/models"
)

// Source names what started a sync session
type Source string

const (
	SourceLogin      Source = "login"
	SourceInterval   Source = "interval"
	SourceScreen     Source = "screen"
	SourceLocalWrite Source = "local_write"
	SourceUser       Source = "user"
)

// Trigger describes a sync request. Failures of explicit triggers are
// returned to the caller; all others are only logged.
type Trigger struct {
	Source   Source
	Explicit bool
}

var (
	TriggerLogin      = Trigger{Source: SourceLogin}
	TriggerInterval   = Trigger{Source: SourceInterval}
	TriggerScreen     = Trigger{Source: SourceScreen}
	TriggerLocalWrite = Trigger{Source: SourceLocalWrite}
	TriggerUser       = Trigger{Source: SourceUser, Explicit: true}
)

// DefaultScreens pull remote state when entered
var DefaultScreens = []string{"gallery", "review", "analysis"}

// Options configure an Orchestrator
type Options struct {
	UserID   string
	Debounce time.Duration // quiet period before an upload after local writes
	Clock    Clock
	Screens  []string

	// OnStateChange, if set, is called after every state transition,
	// outside the orchestrator's lock.
	OnStateChange func(State)
}

// Result describes one sync request. Err is set for failed sessions even
// when the trigger was not explicit.
type Result struct {
	Skipped bool
	Ack     models.Ack
	Report  merge.Report
	Err     error
}

// Orchestrator runs upload, download and full sync sessions
type Orchestrator struct {
	store      *database.Store
	transfer   remote.Transfer
	reconciler *merge.Reconciler
	log        *zap.Logger
	userID     string
	clock      Clock
	screens    map[string]bool
	onState    func(State)

	mu     gosync.Mutex
	status Status
	closed bool

	loggedIn atomic.Bool
	uploads  *Debouncer
	bg       gosync.WaitGroup
}

func New(store *database.Store, transfer remote.Transfer, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Screens == nil {
		opts.Screens = DefaultScreens
	}

	o := &Orchestrator{
		store:      store,
		transfer:   transfer,
		reconciler: merge.NewReconciler(store, log),
		log:        log.Named("sync").With(zap.String("user_id", opts.UserID)),
		userID:     opts.UserID,
		clock:      opts.Clock,
		screens:    make(map[string]bool, len(opts.Screens)),
		onState:    opts.OnStateChange,
	}
	for _, s := range opts.Screens {
		o.screens[s] = true
	}
	o.uploads = NewDebouncer(opts.Clock, opts.Debounce, o.debouncedUpload)
	return o
}

// Status returns the current state and the outcome of the last session
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// State returns the current session state
func (o *Orchestrator) State() State {
	return o.Status().State
}

// UploadOnly sends every local collection and the settings blob. It never
// writes to the local store apart from sync metadata.
func (o *Orchestrator) UploadOnly(ctx context.Context, trig Trigger) (Result, error) {
	return o.run(ctx, trig, "upload", o.upload)
}

// DownloadOnly fetches the remote snapshot and merges it into the local store
func (o *Orchestrator) DownloadOnly(ctx context.Context, trig Trigger) (Result, error) {
	return o.run(ctx, trig, "download", o.download)
}

// FullSync uploads and downloads concurrently. A failure in one direction
// does not undo the other.
func (o *Orchestrator) FullSync(ctx context.Context, trig Trigger) (Result, error) {
	return o.run(ctx, trig, "full", func(ctx context.Context, s *session) error {
		var (
			g              errgroup.Group
			up, down       session
			upErr, downErr error
		)
		// both directions always run to completion
		g.Go(func() error {
			upErr = o.upload(ctx, &up)
			return nil
		})
		g.Go(func() error {
			downErr = o.download(ctx, &down)
			return nil
		})
		_ = g.Wait()

		s.ack, s.uploadedAt = up.ack, up.uploadedAt
		s.report, s.downloadedAt = down.report, down.downloadedAt
		return errors.Join(upErr, downErr)
	})
}

// OnLogin pulls remote state once per login
func (o *Orchestrator) OnLogin(ctx context.Context) (Result, error) {
	if !o.loggedIn.CompareAndSwap(false, true) {
		return Result{Skipped: true}, nil
	}
	return o.DownloadOnly(ctx, TriggerLogin)
}

// OnLogout arms OnLogin again
func (o *Orchestrator) OnLogout() {
	o.loggedIn.Store(false)
}

// OnScreenEntry pulls remote state when one of the configured screens is entered
func (o *Orchestrator) OnScreenEntry(ctx context.Context, screen string) (Result, error) {
	if !o.screens[screen] {
		return Result{Skipped: true}, nil
	}
	return o.DownloadOnly(ctx, TriggerScreen)
}

// NotifyLocalWrite schedules an upload after the debounce window. Bursts of
// writes collapse into one upload.
func (o *Orchestrator) NotifyLocalWrite() {
	o.uploads.Trigger()
}

// FlushUploads runs a pending debounced upload immediately
func (o *Orchestrator) FlushUploads() bool {
	return o.uploads.Flush()
}

// Close drops pending uploads and waits for a running debounced upload
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.uploads.Stop()
	o.bg.Wait()
}

func (o *Orchestrator) debouncedUpload() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.bg.Add(1)
	o.mu.Unlock()
	defer o.bg.Done()

	_, _ = o.UploadOnly(context.Background(), TriggerLocalWrite)
}

type session struct {
	ack          models.Ack
	report       merge.Report
	uploadedAt   time.Time
	downloadedAt time.Time
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	if o.status.State != StateIdle {
		o.mu.Unlock()
		return false
	}
	o.status.State = StateSyncing
	o.mu.Unlock()

	o.notifyState(StateSyncing)
	return true
}

func (o *Orchestrator) setState(st State) {
	o.mu.Lock()
	o.status.State = st
	o.mu.Unlock()
	o.notifyState(st)
}

func (o *Orchestrator) notifyState(st State) {
	if o.onState != nil {
		o.onState(st)
	}
}

func (o *Orchestrator) run(ctx context.Context, trig Trigger, kind string, fn func(context.Context, *session) error) (Result, error) {
	if !o.begin() {
		o.log.Debug("sync request dropped",
			zap.String("kind", kind),
			zap.String("source", string(trig.Source)),
			zap.Error(syncerr.ErrAlreadySyncing))
		return Result{Skipped: true}, nil
	}

	start := o.clock.Now()
	var s session
	err := fn(ctx, &s)
	o.finish(ctx, kind, trig, &s, err, start)

	res := Result{Ack: s.ack, Report: s.report, Err: err}
	if err != nil && trig.Explicit {
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) finish(ctx context.Context, kind string, trig Trigger, s *session, err error, start time.Time) {
	now := o.clock.Now()

	o.mu.Lock()
	st := &o.status
	if !s.uploadedAt.IsZero() {
		st.LastUploadAt = s.uploadedAt
	}
	if !s.downloadedAt.IsZero() {
		st.LastDownloadAt = s.downloadedAt
		st.LastReport = s.report
	}
	if err != nil {
		st.State = StateFailed
		st.LastError = err.Error()
		st.LastErrorKind = syncerr.Kind(err)
	} else {
		st.LastSuccessAt = now
		st.LastError = ""
		st.LastErrorKind = syncerr.KindNone
	}
	snapshot := *st
	o.mu.Unlock()

	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("source", string(trig.Source)),
		zap.Duration("took", now.Sub(start)),
	}
	if err != nil {
		o.notifyState(StateFailed)
		o.log.Error("sync failed", append(fields,
			zap.String("error_kind", string(syncerr.Kind(err))),
			zap.Error(err))...)
	} else {
		o.log.Info("sync done", append(fields,
			zap.Int("writes", s.report.Writes()),
			zap.Any("report", s.report))...)
	}

	if perr := o.persistStatus(ctx, snapshot, s, err == nil); perr != nil {
		o.log.Warn("failed to persist sync status", zap.Error(perr))
	}
	o.setState(StateIdle)
}

func (o *Orchestrator) persistStatus(ctx context.Context, st Status, s *session, ok bool) error {
	// status is written even if the session's context was cancelled
	ctx = context.WithoutCancel(ctx)
	meta := o.store.Meta()
	if !s.uploadedAt.IsZero() {
		if err := meta.SetValue(ctx, MetaLastUploadAt, formatMillis(s.uploadedAt)); err != nil {
			return err
		}
	}
	if !s.downloadedAt.IsZero() {
		if err := meta.SetValue(ctx, MetaLastDownloadAt, formatMillis(s.downloadedAt)); err != nil {
			return err
		}
	}
	if ok {
		if err := meta.SetValue(ctx, MetaLastSuccessAt, formatMillis(st.LastSuccessAt)); err != nil {
			return err
		}
	}
	return meta.SetValue(ctx, MetaLastError, st.LastError)
}

func (o *Orchestrator) upload(ctx context.Context, s *session) error {
	payload, err := o.gather(ctx)
	if err != nil {
		return err
	}
	ack, err := o.transfer.Upload(ctx, payload)
	if err != nil {
		return err
	}
	s.ack = ack
	s.uploadedAt = o.clock.Now()
	return nil
}

func (o *Orchestrator) download(ctx context.Context, s *session) error {
	data, err := o.transfer.Download(ctx, o.userID)
	if err != nil {
		return err
	}

	// the snapshot is fetched once and every collection merges against it
	report, err := o.reconciler.Apply(ctx, merge.Normalize(data))
	s.report = report
	if err != nil {
		return err
	}
	s.downloadedAt = o.clock.Now()
	return nil
}

// gather reads every synced collection in one transaction so the upload is
// a consistent snapshot.
func (o *Orchestrator) gather(ctx context.Context) (models.UploadPayload, error) {
	payload := models.UploadPayload{
		UserID:    o.userID,
		Timestamp: models.Millis(o.clock.Now()),
	}

	err := o.store.RunInTransaction(ctx, database.AllCollections, func(tx *database.Tx) error {
		var err error
		if payload.WordRecords, err = tx.WordProgress().List(ctx); err != nil {
			return err
		}
		if payload.ChapterRecords, err = tx.Chapters().List(ctx); err != nil {
			return err
		}
		if payload.ReviewRecords, err = tx.Reviews().List(ctx); err != nil {
			return err
		}
		if payload.ScheduleRecords, err = tx.Schedule().List(ctx); err != nil {
			return err
		}
		if payload.LedgerEntries, err = tx.Ledger().List(ctx); err != nil {
			return err
		}
		if payload.AchievementUnlocks, err = tx.Achievements().List(ctx); err != nil {
			return err
		}
		payload.Settings, err = tx.Settings().Load(ctx)
		return err
	})
	if err != nil {
		return models.UploadPayload{}, fmt.Errorf("gather local state: %w", err)
	}
	return payload, nil
}
