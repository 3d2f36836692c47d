package notification

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
)

const defaultSignalsLimit = 10

var (
	signalsRegexp  = regexp.MustCompile(`^/signals(?:\s+(?P<pair>[A-Za-z]\w*))?(?:\s+(?P<limit>\d+))?\s*$`)
	snapshotRegexp = regexp.MustCompile(`^/snapshot\s+(?P<pair>\w+)\s*$`)
)

// Monitor exposes the live state of the studies to chat commands
type Monitor interface {
	Pairs() []string
	Snapshot(pair string) (string, error)
}

// telegram implements core.NotifierWithStart
type telegram struct {
	settings    core.Settings
	monitor     Monitor
	storage     core.SignalStorage
	defaultMenu *tb.ReplyMarkup
	client      *tb.Bot
	log         logger.Logger
	muted       atomic.Bool
}

// Option configures a telegram notifier
type Option func(telegram *telegram)

// WithLogger replaces the default logrus logger
func WithLogger(log logger.Logger) Option {
	return func(t *telegram) {
		t.log = log
	}
}

// WithStorage enables the /signals command
func WithStorage(storage core.SignalStorage) Option {
	return func(t *telegram) {
		t.storage = storage
	}
}

// NewTelegram creates a bot that pushes signals to the authorized users and
// answers status commands
func NewTelegram(monitor Monitor, settings core.Settings, options ...Option) (core.NotifierWithStart, error) {
	bot := &telegram{
		monitor:  monitor,
		settings: settings,
		log:      defaultLogger(),
	}
	for _, option := range options {
		option(bot)
	}

	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Telegram.Token,
		Poller:    bot.authMiddleware(poller),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	setupKeyboard(menu)
	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot.client = client
	bot.defaultMenu = menu
	registerHandlers(client, bot)

	return bot, nil
}

func (t *telegram) authMiddleware(poller *tb.LongPoller) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			t.log.Error("message or sender is nil")
			return false
		}

		if slices.Contains(t.settings.Telegram.Users, int(u.Message.Sender.ID)) {
			return true
		}

		t.log.WithField("user", u.Message.Sender.ID).Error("unauthorized user")
		return false
	})
}

func setupKeyboard(menu *tb.ReplyMarkup) {
	var (
		statusBtn  = menu.Text("/status")
		signalsBtn = menu.Text("/signals")
		startBtn   = menu.Text("/start")
		stopBtn    = menu.Text("/stop")
	)

	menu.Reply(
		menu.Row(statusBtn, signalsBtn),
		menu.Row(startBtn, stopBtn),
	)
}

func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/status", Description: "Watched pairs and notification status"},
		{Text: "/snapshot", Description: "Current study values of a pair"},
		{Text: "/signals", Description: "Last signals, optionally of a pair"},
		{Text: "/start", Description: "Resume signal notifications"},
		{Text: "/stop", Description: "Mute signal notifications"},
	})
}

func registerHandlers(client *tb.Bot, bot *telegram) {
	client.Handle("/help", bot.HelpHandle)
	client.Handle("/status", bot.StatusHandle)
	client.Handle("/snapshot", bot.SnapshotHandle)
	client.Handle("/signals", bot.SignalsHandle)
	client.Handle("/start", bot.StartHandle)
	client.Handle("/stop", bot.StopHandle)
}

// Start polls for commands and greets the authorized users
func (t *telegram) Start() {
	go t.client.Start()
	t.sendMessageWithOptions("Chart studies started.", t.defaultMenu)
}

// Notify sends a message to all authorized users
func (t *telegram) Notify(text string) {
	t.sendMessageWithOptions(text)
}

func (t *telegram) sendMessageWithOptions(text string, options ...interface{}) {
	for _, user := range t.settings.Telegram.Users {
		_, err := t.client.Send(&tb.User{ID: int64(user)}, text, options...)
		if err != nil {
			t.log.WithError(err).Error("failed to send notification")
		}
	}
}

func (t *telegram) sendMessage(to *tb.User, text string, options ...interface{}) {
	_, err := t.client.Send(to, text, options...)
	if err != nil {
		t.log.WithError(err).Error("failed to send message")
	}
}

// HelpHandle lists the available commands
func (t *telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		t.log.WithError(err).Error("failed to get commands")
		t.OnError(err)
		return
	}

	lines := lo.Map(commands, func(command tb.Command, _ int) string {
		return fmt.Sprintf("%s - %s", command.Text, command.Description)
	})
	t.sendMessage(m.Sender, strings.Join(lines, "\n"))
}

// StatusHandle shows the watched pairs and whether signals are muted
func (t *telegram) StatusHandle(m *tb.Message) {
	t.sendMessage(m.Sender, formatStatus(t.monitor.Pairs(), t.muted.Load()))
}

func formatStatus(pairs []string, muted bool) string {
	status := "on"
	if muted {
		status = "muted"
	}
	return fmt.Sprintf("Pairs: `%s`\nNotifications: `%s`", strings.Join(pairs, ", "), status)
}

// SnapshotHandle shows the current values of every study of a pair
func (t *telegram) SnapshotHandle(m *tb.Message) {
	params, ok := extractCommandParams(snapshotRegexp, m.Text)
	if !ok {
		t.sendMessage(m.Sender, "Invalid command.\nExample of usage:\n`/snapshot BTCUSDT`")
		return
	}

	snapshot, err := t.monitor.Snapshot(strings.ToUpper(params["pair"]))
	if err != nil {
		t.sendMessage(m.Sender, err.Error())
		return
	}
	t.sendMessage(m.Sender, fmt.Sprintf("```\n%s\n```", snapshot))
}

// SignalsHandle lists the last stored signals
func (t *telegram) SignalsHandle(m *tb.Message) {
	if t.storage == nil {
		t.sendMessage(m.Sender, "Signal storage is disabled.")
		return
	}

	pair, limit, ok := parseSignalsCommand(m.Text)
	if !ok {
		t.sendMessage(m.Sender, "Invalid command.\nExamples of usage:\n`/signals`\n\n`/signals BTCUSDT 5`")
		return
	}

	var filters []core.SignalFilter
	if pair != "" {
		filters = append(filters, core.WithPair(pair))
	}

	signals, err := t.storage.Signals(filters...)
	if err != nil {
		t.OnError(err)
		return
	}

	t.sendMessage(m.Sender, formatSignals(signals, limit))
}

func parseSignalsCommand(text string) (pair string, limit int, ok bool) {
	params, ok := extractCommandParams(signalsRegexp, strings.TrimSpace(text))
	if !ok {
		return "", 0, false
	}

	limit = defaultSignalsLimit
	if params["limit"] != "" {
		limit, _ = strconv.Atoi(params["limit"])
	}
	return strings.ToUpper(params["pair"]), limit, limit > 0
}

func formatSignals(signals []*core.Signal, limit int) string {
	if len(signals) == 0 {
		return "No signals registered."
	}

	if len(signals) > limit {
		signals = signals[len(signals)-limit:]
	}

	lines := lo.Map(signals, func(signal *core.Signal, _ int) string {
		return fmt.Sprintf("`%s` %s %s", signal.Time.Format("01-02 15:04"), signal.Pair, signal.Kind)
	})
	return strings.Join(lines, "\n")
}

// StartHandle resumes signal notifications
func (t *telegram) StartHandle(m *tb.Message) {
	if !t.muted.Swap(false) {
		t.sendMessage(m.Sender, "Notifications are already on.", t.defaultMenu)
		return
	}
	t.sendMessage(m.Sender, "Notifications resumed.", t.defaultMenu)
}

// StopHandle mutes signal notifications; errors are still reported
func (t *telegram) StopHandle(m *tb.Message) {
	if t.muted.Swap(true) {
		t.sendMessage(m.Sender, "Notifications are already muted.", t.defaultMenu)
		return
	}
	t.sendMessage(m.Sender, "Notifications muted.", t.defaultMenu)
}

// OnSignal forwards a study signal unless notifications are muted
func (t *telegram) OnSignal(signal core.Signal) {
	if t.muted.Load() {
		return
	}
	t.Notify(fmt.Sprintf("%s\n-----\n%s", signalTitle(signal), signalBody(signal)))
}

// OnError notifies users about errors
func (t *telegram) OnError(err error) {
	t.Notify(fmt.Sprintf("🛑 ERROR\n-----\n%s", err))
}

func extractCommandParams(regex *regexp.Regexp, text string) (map[string]string, bool) {
	match := regex.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}

	command := make(map[string]string)
	for i, name := range regex.SubexpNames() {
		if i != 0 && name != "" {
			command[name] = match[i]
		}
	}
	return command, true
}
