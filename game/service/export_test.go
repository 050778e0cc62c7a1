package service

// TickForEpoch delivers a timer tick as if it came from the clock started for epoch
func TickForEpoch(svc GameService, sessionID string, epoch int) {
	svc.(*gameServiceImpl).onTimerTick(sessionID, epoch)
}
