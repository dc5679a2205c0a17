package frame

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// StageParallel fans jobs out across pool and blocks until every one
// completes. pool.Wait() only idle-exits once workers sit empty for the
// pool's configured timeout, which is unsuitable for a per-frame barrier, so
// a WaitGroup is used instead — the same substitution the scene frame loop
// this is grounded on makes for its own per-animator prep phase.
func StageParallel(pool worker.DynamicWorkerPool, jobs []func()) {
	if len(jobs) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, job := range jobs {
		job := job
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				job()
				return nil, nil
			},
		})
	}
	wg.Wait()
}
