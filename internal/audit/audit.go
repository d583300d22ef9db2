// internal/audit/audit.go
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Entry is one audit record describing a donation status change.
type Entry struct {
	DonationID string
	ActorID    string
	FromStatus string
	ToStatus   string
	Note       string
	CreatedAt  time.Time
}

type PoolConfig struct {
	BatchSize   int
	Timeout     time.Duration
	ChannelSize int
}

type Processor interface {
	Process(batch []Entry) error
}

// DBProcessor persists batches into the audit_logs table with a
// single multi-row INSERT per batch.
type DBProcessor struct {
	db *sql.DB
}

func NewDBProcessor(db *sql.DB) *DBProcessor {
	return &DBProcessor{db: db}
}

func (p *DBProcessor) Process(batch []Entry) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO audit_logs (donation_id, actor_id, from_status, to_status, note, created_at) VALUES `)

	params := []interface{}{}
	paramIndex := 1
	for i, rec := range batch {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", paramIndex, paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4, paramIndex+5))
		paramIndex += 6
		params = append(params, rec.DonationID, rec.ActorID, rec.FromStatus, rec.ToStatus, rec.Note, rec.CreatedAt)
	}
	_, err := p.db.Exec(sb.String(), params...)
	if err != nil {
		return fmt.Errorf("failed to insert audit batch: %w", err)
	}
	return nil
}

// StdoutProcessor mirrors batches to stdout, useful during local runs.
type StdoutProcessor struct {
	Filter string
}

func (p *StdoutProcessor) Process(batch []Entry) error {
	for _, rec := range batch {
		if p.Filter != "" &&
			!strings.Contains(strings.ToLower(rec.Note), strings.ToLower(p.Filter)) {
			continue
		}
		fmt.Printf("AUDIT: %s | Donation: %s | %s -> %s | Actor: %s | %s\n",
			rec.CreatedAt.Format(time.RFC3339), rec.DonationID, rec.FromStatus, rec.ToStatus, rec.ActorID, rec.Note)
	}
	return nil
}

// WorkerPool batches audit entries by size or timeout and hands each
// batch to every configured processor. Submissions never block: when
// the channel is full the entry is dropped with a log line.
type WorkerPool struct {
	inputCh    chan Entry
	processors []Processor
	batchSize  int
	timeout    time.Duration

	wg sync.WaitGroup
}

func NewWorkerPool(cfg PoolConfig, processors ...Processor) *WorkerPool {
	return &WorkerPool{
		inputCh:    make(chan Entry, cfg.ChannelSize),
		processors: processors,
		batchSize:  cfg.BatchSize,
		timeout:    cfg.Timeout,
	}
}

func (p *WorkerPool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker(ctx)
		}()
	}
}

func (p *WorkerPool) worker(ctx context.Context) {
	var batch []Entry
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				p.processBatch(batch)
			}
			return
		case rec := <-p.inputCh:
			batch = append(batch, rec)
			if len(batch) >= p.batchSize {
				if !timer.Stop() {
					<-timer.C
				}
				p.processBatch(batch)
				batch = nil
				timer.Reset(p.timeout)
			}
		case <-timer.C:
			if len(batch) > 0 {
				p.processBatch(batch)
				batch = nil
			}
			timer.Reset(p.timeout)
		}
	}
}

func (p *WorkerPool) processBatch(batch []Entry) {
	for _, proc := range p.processors {
		if err := proc.Process(batch); err != nil {
			log.Printf("Error processing audit batch: %v", err)
		}
	}
}

func (p *WorkerPool) Append(record Entry) {
	select {
	case p.inputCh <- record:
	default:
		log.Println("Audit channel full, dropping entry")
	}
}

// Shutdown cancels the workers and waits for in-flight batches.
func (p *WorkerPool) Shutdown(cancel context.CancelFunc) {
	cancel()
	p.wg.Wait()
}
