package tasks

import (
	"log"

	"github.com/robfig/cron/v3"

	"driftchat/internal/registry"
)

// RegistrySweeper periodically drops registry entries whose last session is
// gone, so idle usernames do not pile up for the lifetime of the process.
type RegistrySweeper struct {
	reg *registry.Registry
}

func NewRegistrySweeper(reg *registry.Registry) *RegistrySweeper {
	return &RegistrySweeper{
		reg: reg,
	}
}

func (s *RegistrySweeper) Start() {
	c := cron.New()

	_, err := c.AddFunc("@every 10m", func() {
		removed := s.reg.Sweep()
		if removed > 0 {
			log.Printf("[WORKER] Registry sweep removed %d idle entries (%d remain)", removed, s.reg.Len())
		}
	})
	if err != nil {
		log.Printf("[WORKER] Error scheduling cron: %v", err)
		return
	}

	c.Start()
}
