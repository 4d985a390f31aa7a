package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/catcharena/server/internal/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Result is the final scoreboard line of a player leaving the game.
type Result struct {
	RunID      uuid.UUID
	PlayerID   proto.PlayerID
	Name       string
	Kills      uint32
	Deaths     uint32
	Score      int32
	FinishedAt time.Time
}

// ResultWriter stores a batch of results.
type ResultWriter interface {
	WriteResults(ctx context.Context, results []Result) error
}

type ResultRepo struct {
	db *DB
}

func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// WriteResults inserts a batch of results in a single transaction.
func (r *ResultRepo) WriteResults(ctx context.Context, results []Result) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("results begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, res := range results {
		if _, err := tx.Exec(ctx,
			`INSERT INTO player_results (run_id, player_id, name, kills, deaths, score, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.RunID, int32(res.PlayerID), res.Name, int32(res.Kills), int32(res.Deaths), res.Score, res.FinishedAt,
		); err != nil {
			return fmt.Errorf("results insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Recorder hands results from the game loop to a background writer. The game
// loop never blocks on it: when the queue is full, results are dropped.
type Recorder struct {
	runID  uuid.UUID
	writer ResultWriter
	queue  chan Result
	log    *zap.Logger
	now    func() time.Time
}

func NewRecorder(runID uuid.UUID, writer ResultWriter, queueSize int, log *zap.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Recorder{
		runID:  runID,
		writer: writer,
		queue:  make(chan Result, queueSize),
		log:    log,
		now:    time.Now,
	}
}

// PlayerFinished queues a player's final stats. Called from the game loop.
func (r *Recorder) PlayerFinished(info proto.PlayerInfo) {
	res := Result{
		RunID:      r.runID,
		PlayerID:   info.ID,
		Name:       info.Name,
		Kills:      info.Stats.Kills,
		Deaths:     info.Stats.Deaths,
		Score:      info.Stats.Score,
		FinishedAt: r.now(),
	}
	select {
	case r.queue <- res:
	default:
		r.log.Warn("results queue full, dropping result",
			zap.Uint32("player", uint32(info.ID)))
	}
}

// Run writes queued results until ctx is cancelled, then flushes what is
// left. Writes in flight are not cut short by the cancellation.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case res := <-r.queue:
			if err := r.write(ctx, r.collect(res)); err != nil {
				r.log.Error("write results", zap.Error(err))
			}
		case <-ctx.Done():
			return r.flush(ctx)
		}
	}
}

// collect gathers whatever else is already queued.
func (r *Recorder) collect(first Result) []Result {
	batch := []Result{first}
	for {
		select {
		case res := <-r.queue:
			batch = append(batch, res)
		default:
			return batch
		}
	}
}

func (r *Recorder) flush(ctx context.Context) error {
	select {
	case res := <-r.queue:
		return r.write(ctx, r.collect(res))
	default:
		return nil
	}
}

func (r *Recorder) write(ctx context.Context, batch []Result) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.writer.WriteResults(wctx, batch); err != nil {
		return fmt.Errorf("write %d results: %w", len(batch), err)
	}
	return nil
}
