package render

import (
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/pkg/utils"
)

// DefaultWorkers bounds concurrent renders when no bound is configured.
const DefaultWorkers = 4

// Coordinator renders one PDF per source file over a bounded pool.
type Coordinator struct {
	renderer *Renderer
	workers  int
	logger   *zap.Logger
}

// NewCoordinator returns a coordinator running at most workers renders at once.
func NewCoordinator(renderer *Renderer, workers int, logger *zap.Logger) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{renderer: renderer, workers: workers, logger: logger}
}

// BuildTasks turns set into render tasks, one per source file in name order.
// Each task owns deep copies of its records with scraped content cut to
// TextBudget characters.
func BuildTasks(set models.RecordSet) []models.PDFTask {
	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)

	tasks := make([]models.PDFTask, 0, len(files))
	for _, f := range files {
		task := models.NewPDFTask(f, set[f])
		for _, rec := range task.Records {
			for i := range rec.ExtractedURLs {
				rec.ExtractedURLs[i].TextContent = utils.TruncateRunes(rec.ExtractedURLs[i].TextContent, TextBudget)
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// RenderAll renders every file in set and returns the names of the PDFs that
// were written, in completion order. Failed renders are logged and omitted.
func (c *Coordinator) RenderAll(set models.RecordSet) []string {
	return c.RenderTasks(BuildTasks(set))
}

// RenderTasks renders prepared tasks; see RenderAll.
func (c *Coordinator) RenderTasks(tasks []models.PDFTask) []string {
	start := time.Now()
	c.logger.Info("starting parallel pdf creation", zap.Int("files", len(tasks)), zap.Int("workers", c.workers))

	results := make(chan Result)
	go func() {
		var g errgroup.Group
		g.SetLimit(c.workers)
		for _, task := range tasks {
			task := task
			g.Go(func() error {
				results <- c.renderer.Render(task)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var written []string
	for res := range results {
		if !res.OK() {
			c.logger.Warn("skipping pdf", zap.String("file", res.Filename), zap.Error(res.Err))
			continue
		}
		written = append(written, res.Filename)
	}

	c.logger.Info("completed pdf creation",
		zap.Int("succeeded", len(written)),
		zap.Int("total", len(tasks)),
		zap.Duration("elapsed", time.Since(start)))
	return written
}
