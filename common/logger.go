package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

var dbgLogger *logrus.Logger

func init() {
	dbgLogger = logrus.New()
	dbgLogger.SetOutput(os.Stdout)
	dbgLogger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	if EnableDebug {
		dbgLogger.SetLevel(logrus.DebugLevel)
	} else {
		dbgLogger.SetLevel(logrus.InfoLevel)
	}
}

// LogDebug emits a debug line when kind is enabled in ActiveLogKindSetting.
// The EnableDebug check keeps the call free when debugging is off.
func LogDebug(kind uint32, format string, args ...interface{}) {
	if !EnableDebug {
		return
	}
	if ActiveLogKindSetting&kind == 0 {
		return
	}
	dbgLogger.Debugf(format, args...)
}

// LogInfo always emits (subject to the logrus level).
func LogInfo(format string, args ...interface{}) {
	dbgLogger.Infof(format, args...)
}
