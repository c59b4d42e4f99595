package display

import "go.uber.org/zap"

// LogDisplay renders screens into the log, for devices without a panel.
type LogDisplay struct {
	logger *zap.Logger
}

func NewLogDisplay(logger *zap.Logger) *LogDisplay {
	return &LogDisplay{logger: logger.Named("display")}
}

func (d *LogDisplay) Show(screen Screen) error {
	d.logger.Info("Status display", zap.Strings("rows", Render(screen)))
	return nil
}
