package drivers

import (
	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
)

const logLevelPref = "select/log_level"

// LogSelect exposes the runtime log level as a select entity. A chosen level
// is remembered in preferences and applied again at the next start.
type LogSelect struct {
	component.Base

	logger *logging.Logger
	prefs  entity.Preferences
	sel    *entity.Select
}

// NewLogSelect binds a select to logger's level. prefs may be nil.
func NewLogSelect(logger *logging.Logger, prefs entity.Preferences) *LogSelect {
	l := &LogSelect{
		Base:   component.NewBase("logger"),
		logger: logger,
		prefs:  prefs,
	}
	l.sel = entity.NewSelect("Log Level", logging.Levels, l.apply, entity.WithIcon("mdi:math-log"))
	return l
}

// Select returns the entity.
func (l *LogSelect) Select() *entity.Select { return l.sel }

func (l *LogSelect) SetupPriority() float64 { return component.PriorityBus }

func (l *LogSelect) apply(level string) error {
	l.logger.SetLevel(level)
	if l.prefs != nil {
		return l.prefs.Save(logLevelPref, level)
	}
	return nil
}

func (l *LogSelect) Setup() error {
	level := l.logger.Level()
	if l.prefs != nil {
		var saved string
		found, err := l.prefs.Load(logLevelPref, &saved)
		if err != nil {
			l.logger.Warn("ignoring saved log level", "error", err)
		} else if _, ok := l.sel.Index(saved); found && ok {
			level = saved
			l.logger.SetLevel(level)
		}
	}
	l.sel.PublishInitialState(level)
	return nil
}

func (l *LogSelect) DumpConfig(log *logging.Logger) {
	log.Info("log level select", "level", l.logger.Level(), "options", l.sel.Options())
}
