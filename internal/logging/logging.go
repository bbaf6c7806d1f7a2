package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	// Logger is shared by every package. LoggingSetup reconfigures it in place so
	// package-level copies of the pointer stay valid.
	Logger           *log.Logger        = newLogger(os.Stderr, log.InfoLevel)
	lumberjackLogger *lumberjack.Logger = nil
)

type myFormatter struct {
	log.TextFormatter
}

func newLogger(out io.Writer, level log.Level) *log.Logger {
	return &log.Logger{
		Out:   out,
		Level: level,
		Hooks: make(log.LevelHooks),
		Formatter: &myFormatter{log.TextFormatter{
			FullTimestamp:          true,
			TimestampFormat:        timestampFormat,
			ForceColors:            true,
			DisableLevelTruncation: true,
		}},
	}
}

// LoggingSetup sends the shared Logger to stderr and ./logs/<fileName>.log.
func LoggingSetup(isDebug bool, fileName string) *log.Logger {
	if lumberjackLogger != nil {
		lumberjackLogger.Close()
	}

	logLevel := log.InfoLevel

	if isDebug {
		logLevel = log.DebugLevel
	}

	lumberjackLogger = &lumberjack.Logger{
		Filename:   filepath.ToSlash("./logs/" + fileName + ".log"),
		MaxSize:    10, // MB
		MaxBackups: 10,
		Compress:   false,
	}

	Logger.SetOutput(io.MultiWriter(os.Stderr, lumberjackLogger))
	Logger.SetLevel(logLevel)
	return Logger
}

func (f *myFormatter) Format(entry *log.Entry) ([]byte, error) {
	var logLevelStr string

	switch entry.Level {
	case log.InfoLevel:
		logLevelStr = "INFO "
	case log.WarnLevel:
		logLevelStr = "WARN "
	case log.DebugLevel:
		logLevelStr = "DEBUG"
	case log.TraceLevel:
		logLevelStr = "TRACE"
	case log.FatalLevel:
		logLevelStr = "FATAL"
	case log.PanicLevel:
		logLevelStr = "PANIC"
	default:
		logLevelStr = strings.ToUpper(entry.Level.String())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s : %s : %s", entry.Time.Format(f.TimestampFormat), logLevelStr, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
