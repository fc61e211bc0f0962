package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFormatPlain(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2019, 3, 7, 12, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "page load failed",
		Data: logrus.Fields{
			"page": 3,
			"err":  errors.New("boom"),
		},
	}

	fmtr := &FancyLogFormatter{UseColors: false}
	out, err := fmtr.Format(entry)
	require.NoError(t, err)

	line := string(out)
	require.True(t, strings.HasPrefix(line, "07.03.2019/12:04:05 ⚠"), line)
	require.Contains(t, line, " page load failed [err=boom page=3]")
	require.True(t, strings.HasSuffix(line, "\n"))
}

func TestSetup(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Setup(buf, "info", true))
	defer func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	}()

	logrus.Debugf("invisible")
	logrus.Infof("visible")

	require.NotContains(t, buf.String(), "invisible")
	require.Contains(t, buf.String(), "visible")

	// buffers are never terminals, so no escape codes:
	require.NotContains(t, buf.String(), "\x1b[")
	require.Error(t, Setup(buf, "loud", false))
}
