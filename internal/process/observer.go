package process

import "time"

// RunInfo identifies a run to observers.
type RunInfo struct {
	RunID     string
	ProcessID string
	Version   string
	StartedAt time.Time
	Input     Input
}

// Observer receives run lifecycle events. Implementations must not block.
type Observer interface {
	OnRunStart(info RunInfo)
	OnPhase(info RunInfo, phase PhaseRecord)
	OnRunFinish(info RunInfo, result Result)
}

// Observers fans events out in order.
type Observers []Observer

// OnRunStart implements Observer.
func (o Observers) OnRunStart(info RunInfo) {
	for _, obs := range o {
		obs.OnRunStart(info)
	}
}

// OnPhase implements Observer.
func (o Observers) OnPhase(info RunInfo, phase PhaseRecord) {
	for _, obs := range o {
		obs.OnPhase(info, phase)
	}
}

// OnRunFinish implements Observer.
func (o Observers) OnRunFinish(info RunInfo, result Result) {
	for _, obs := range o {
		obs.OnRunFinish(info, result)
	}
}
