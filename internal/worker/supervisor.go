package worker

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
)

const restartDelay = 10 * time.Second

type managedWorker struct {
	workerType string
	cmd        *exec.Cmd
	exited     chan error
	restartAt  time.Time
}

func spawn(log *logger.Logger, self, workerType string) *managedWorker {
	w := &managedWorker{workerType: workerType}
	w.start(log, self)
	return w
}

func (w *managedWorker) start(log *logger.Logger, self string) {
	cmd := exec.Command(self, "worker", w.workerType)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Info("Spawning worker", "worker_type", w.workerType)
	if err := cmd.Start(); err != nil {
		log.Warn("Failed to spawn worker; retrying later", "worker_type", w.workerType, "error", err)
		w.cmd = nil
		w.exited = nil
		w.restartAt = time.Now().Add(restartDelay)
		return
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	w.cmd = cmd
	w.exited = exited
}

// Supervise spawns one subprocess per dedicated queue plus two common
// workers, restarting any that exit after a 10 second delay. Returns after
// SIGINT or SIGTERM, killing all children.
func Supervise(log *logger.Logger) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	types := []string{"tika", "easyocr", "indexing", "common", "common"}
	workers := make([]*managedWorker, 0, len(types))
	for _, wt := range types {
		workers = append(workers, spawn(log, self, wt))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			log.Warn("Signal received; killing all worker processes", "signal", sig.String())
			for _, w := range workers {
				if w.cmd != nil && w.cmd.Process != nil {
					log.Warn("Killing worker", "worker_type", w.workerType, "pid", w.cmd.Process.Pid)
					_ = w.cmd.Process.Kill()
				}
			}
			deadline := time.After(time.Second)
			for _, w := range workers {
				if w.exited == nil {
					continue
				}
				select {
				case <-w.exited:
				case <-deadline:
				}
			}
			return nil

		case <-ticker.C:
			now := time.Now()
			for _, w := range workers {
				if w.exited != nil {
					select {
					case err := <-w.exited:
						log.Warn("Worker exited; restarting in 10s",
							"worker_type", w.workerType, "error", err)
						w.cmd = nil
						w.exited = nil
						w.restartAt = now.Add(restartDelay)
					default:
					}
				} else if !w.restartAt.IsZero() && now.After(w.restartAt) {
					w.restartAt = time.Time{}
					w.start(log, self)
				}
			}
		}
	}
}
