package services

import (
	"agora/internal/telemetry"
	"agora/internal/utils"
	"time"

	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service. Store is required;
// a nil Cache, Notifier or Metrics turns that concern off.
type Deps struct {
	Store    Store
	Cache    *utils.QueryCache
	Notifier Notifier
	Metrics  *telemetry.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
	// Rank overrides utils.DefaultRankConfig for listings.
	Rank *utils.RankConfig
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = NopNotifier{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
