// Package notification delivers study signals to Telegram and e-mail.
package notification

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
	logruslog "github.com/gambcl/chartstudies/pkg/logger/logrus"
)

var kindTitles = map[core.SignalKind]string{
	core.SignalInitialBalanceConfirmed: "📏 INITIAL BALANCE",
	core.SignalImbalanceBullish:        "🟢 BULLISH IMBALANCE",
	core.SignalImbalanceBearish:        "🔴 BEARISH IMBALANCE",
	core.SignalImbalanceFilled:         "✅ IMBALANCE FILLED",
	core.SignalWaveTrendBullishCross:   "📈 WAVE TREND BULLISH CROSS",
	core.SignalWaveTrendBearishCross:   "📉 WAVE TREND BEARISH CROSS",
}

func defaultLogger() logger.Logger {
	return logruslog.NewAdapter(logrus.NewEntry(logrus.StandardLogger()))
}

func signalTitle(signal core.Signal) string {
	title, ok := kindTitles[signal.Kind]
	if !ok {
		title = strings.ToUpper(string(signal.Kind))
	}
	return fmt.Sprintf("%s - %s", title, signal.Pair)
}

func signalBody(signal core.Signal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Study: %s\n", signal.Study)
	fmt.Fprintf(&sb, "Time: %s\n", signal.Time.Format("2006-01-02 15:04 MST"))
	if signal.High != 0 || signal.Low != 0 {
		fmt.Fprintf(&sb, "Range: %g - %g\n", signal.Low, signal.High)
	}
	if signal.Price != 0 {
		fmt.Fprintf(&sb, "Price: %g\n", signal.Price)
	}
	if signal.Message != "" {
		sb.WriteString(signal.Message)
	}
	return strings.TrimRight(sb.String(), "\n")
}
