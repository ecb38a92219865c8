package command

import (
	"io"

	"github.com/joeycumines/script-garden/internal/config"
	"github.com/joeycumines/script-garden/internal/console"
)

// openConsole builds the session log. Entries are mirrored as text to
// mirror when it is non-nil, and as JSON lines to the configured log file.
// The returned close function writes out queued entries, then releases the
// file.
func openConsole(s config.Settings, mirror io.Writer) (*console.Console, func() error, error) {
	var text, file func(console.Entry)
	if mirror != nil {
		text = console.WriterSink(mirror)
	}
	var f *console.RotatingFile
	if s.LogFile != "" {
		var err error
		f, err = console.OpenRotatingFile(s.LogFile, s.LogFileMaxSizeMB, s.LogFileMaxBackups)
		if err != nil {
			return nil, nil, err
		}
		file = console.JSONSink(f)
	}
	con := console.New(s.LogMaxEntries, s.LogLevel)
	con.SetSink(console.Tee(text, file))
	return con, func() error {
		con.Close()
		if f == nil {
			return nil
		}
		return f.Close()
	}, nil
}
