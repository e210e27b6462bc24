package moderation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/edgard/phraseguard/internal/observability"
)

// CommandKind identifies an admin command.
type CommandKind int

// Admin commands.
const (
	CommandAdd CommandKind = iota + 1
	CommandRemove
	CommandList
	CommandHelp
)

// Command is a parsed operator instruction. Arg is the raw, untrimmed argument
// of Add and Remove and empty otherwise.
type Command struct {
	Kind CommandKind
	Arg  string
}

// CommandInfo documents one admin command.
type CommandInfo struct {
	Kind        CommandKind
	Name        string
	Aliases     []string
	Args        string
	Description string
}

func (c CommandInfo) takesArg() bool { return c.Args != "" }

var commandTable = []CommandInfo{
	{Kind: CommandAdd, Name: "add", Args: "<phrase>", Description: "Add a phrase to the block list"},
	{Kind: CommandRemove, Name: "remove", Args: "<phrase>", Description: "Remove a phrase from the block list"},
	{Kind: CommandList, Name: "print", Aliases: []string{"list"}, Description: "List the blocked phrases"},
	{Kind: CommandHelp, Name: "help", Description: "Show the command reference"},
}

// Commands returns the reference of all admin commands.
func Commands() []CommandInfo {
	out := make([]CommandInfo, len(commandTable))
	copy(out, commandTable)
	return out
}

func (k CommandKind) String() string {
	for _, c := range commandTable {
		if c.Kind == k {
			return c.Name
		}
	}
	return "unknown"
}

func lookupCommand(name string) (CommandInfo, bool) {
	name = strings.ToLower(name)
	for _, c := range commandTable {
		if c.Name == name {
			return c, true
		}
		for _, a := range c.Aliases {
			if a == name {
				return c, true
			}
		}
	}
	return CommandInfo{}, false
}

// ParseCommand recognizes an admin command addressed to botUsername. The bot
// must be mentioned either in the command token (/add@bot) or as a standalone
// @bot token right after the command or at the end of the text. It returns
// false for anything that is not a well-formed command for this bot.
func ParseCommand(text, botUsername string) (Command, bool) {
	if botUsername == "" {
		return Command{}, false
	}
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, rest := cutToken(text[1:])
	name, target, hasTarget := strings.Cut(head, "@")
	mention := "@" + botUsername

	addressed := false
	if hasTarget {
		if !strings.EqualFold(target, botUsername) {
			return Command{}, false
		}
		addressed = true
	} else {
		rest, addressed = stripMention(rest, mention)
	}
	if !addressed {
		return Command{}, false
	}

	info, ok := lookupCommand(name)
	if !ok {
		return Command{}, false
	}
	if !info.takesArg() {
		if strings.TrimSpace(rest) != "" {
			return Command{}, false
		}
		rest = ""
	}
	return Command{Kind: info.Kind, Arg: rest}, true
}

func cutToken(s string) (string, string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx:]
}

// stripMention removes a standalone mention leading or trailing rest.
func stripMention(rest, mention string) (string, bool) {
	tok, after := cutToken(strings.TrimLeftFunc(rest, unicode.IsSpace))
	if strings.EqualFold(tok, mention) {
		return after, true
	}

	trimmed := strings.TrimRightFunc(rest, unicode.IsSpace)
	if len(trimmed) < len(mention) {
		return rest, false
	}
	cut := len(trimmed) - len(mention)
	if !strings.EqualFold(trimmed[cut:], mention) {
		return rest, false
	}
	before := trimmed[:cut]
	if r, _ := utf8.DecodeLastRuneInString(before); before != "" && !unicode.IsSpace(r) {
		return rest, false
	}
	return before, true
}

// Messages holds the operator-facing response texts. Format verbs: %d for
// PhraseTooShort, %s for the phrase-naming messages and for HelpHeader.
type Messages struct {
	InputEmpty     string
	PhraseTooShort string
	PhraseAdded    string
	PhraseExists   string
	PhraseRemoved  string
	PhraseNotFound string
	ListEmpty      string
	ListHeader     string
	HelpHeader     string
}

// DefaultMessages returns the built-in response texts.
func DefaultMessages() Messages {
	return Messages{
		InputEmpty:     "Input is empty.",
		PhraseTooShort: "Phrase is too short, it must be at least %d characters long.",
		PhraseAdded:    "Added phrase: %s",
		PhraseExists:   "Phrase is already blocked: %s",
		PhraseRemoved:  "Removed phrase: %s",
		PhraseNotFound: "Phrase not found: %s\nUse /print to see the blocked phrases.",
		ListEmpty:      "The block list is empty.",
		ListHeader:     "Blocked phrases:",
		HelpHeader:     "Admin commands (mention @%s):",
	}
}

// Validate checks that every formatted text takes exactly the argument it is
// rendered with.
func (m Messages) Validate() error {
	formats := []struct {
		field, text string
		arg         any
	}{
		{"PhraseTooShort", m.PhraseTooShort, MinPhraseLength},
		{"PhraseAdded", m.PhraseAdded, "phrase"},
		{"PhraseExists", m.PhraseExists, "phrase"},
		{"PhraseRemoved", m.PhraseRemoved, "phrase"},
		{"PhraseNotFound", m.PhraseNotFound, "phrase"},
		{"HelpHeader", m.HelpHeader, "bot"},
	}
	for _, f := range formats {
		if f.text == "" {
			continue
		}
		if out := fmt.Sprintf(f.text, f.arg); strings.Contains(out, "%!") {
			return fmt.Errorf("message %s must contain exactly one %s verb: %q", f.field, verbFor(f.arg), f.text)
		}
	}
	return nil
}

func verbFor(arg any) string {
	if _, ok := arg.(int); ok {
		return "%d"
	}
	return "%s"
}

// responder is implemented by Replier.
type responder interface {
	RespondAndExpire(ctx context.Context, original Message, text string)
}

// Processor authorizes and executes admin commands. It is the only writer of
// the phrase store.
type Processor struct {
	store       *PhraseStore
	members     MemberLookup
	replies     responder
	journal     Journal
	metrics     *observability.Metrics
	messages    Messages
	botUsername string
	logger      *slog.Logger
	now         func() time.Time
}

// ProcessorDeps groups the collaborators of a Processor. Journal and Metrics
// are optional.
type ProcessorDeps struct {
	Store       *PhraseStore
	Members     MemberLookup
	Replier     *Replier
	Journal     Journal
	Metrics     *observability.Metrics
	Messages    Messages
	BotUsername string
	Logger      *slog.Logger
}

// NewProcessor creates a command processor.
func NewProcessor(deps ProcessorDeps) *Processor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Processor{
		store:       deps.Store,
		members:     deps.Members,
		journal:     deps.Journal,
		metrics:     deps.Metrics,
		messages:    deps.Messages,
		botUsername: deps.BotUsername,
		logger:      logger.With("component", "commands"),
		now:         time.Now,
	}
	if deps.Replier != nil {
		p.replies = deps.Replier
	}
	p.metrics.SetPhrases(p.store.Snapshot().Len())
	return p
}

// BotUsername returns the handle commands must mention.
func (p *Processor) BotUsername() string { return p.botUsername }

// Handle runs cmd issued by msg. It returns false, without any visible
// effect, when the author is not privileged in the chat.
func (p *Processor) Handle(ctx context.Context, msg Message, cmd Command) bool {
	log := p.logger.With("chat_id", msg.ChatID, "message_id", msg.ID, "command", cmd.Kind.String())

	if !p.authorized(ctx, log, msg) {
		p.metrics.ObserveCommand(cmd.Kind.String(), "unauthorized")
		return false
	}

	response := p.Dispatch(ctx, msg, cmd)
	if response == "" {
		log.WarnContext(ctx, "Command produced no response")
		return true
	}
	if p.replies != nil {
		p.replies.RespondAndExpire(ctx, msg, response)
	}
	return true
}

func (p *Processor) authorized(ctx context.Context, log *slog.Logger, msg Message) bool {
	if msg.Author == nil {
		log.DebugContext(ctx, "Ignoring command without author")
		return false
	}
	status, err := p.members.MemberStatus(ctx, msg.ChatID, msg.Author.ID)
	if err != nil {
		log.WarnContext(ctx, "Failed to look up member status", "user_id", msg.Author.ID, "error", err)
		return false
	}
	if !status.Privileged() {
		log.InfoContext(ctx, "Ignoring command from unprivileged user", "user_id", msg.Author.ID, "status", status.String())
		return false
	}
	return true
}

// Dispatch executes an already authorized command and returns the response.
// An unknown kind yields an empty response.
func (p *Processor) Dispatch(ctx context.Context, msg Message, cmd Command) string {
	switch cmd.Kind {
	case CommandAdd:
		return p.add(ctx, msg, cmd.Arg)
	case CommandRemove:
		return p.remove(ctx, msg, cmd.Arg)
	case CommandList:
		p.metrics.ObserveCommand(cmd.Kind.String(), observability.ResultOK)
		return p.list()
	case CommandHelp:
		p.metrics.ObserveCommand(cmd.Kind.String(), observability.ResultOK)
		return p.help()
	default:
		return ""
	}
}

func (p *Processor) add(ctx context.Context, msg Message, raw string) string {
	phrase := strings.TrimSpace(raw)
	switch {
	case phrase == "":
		p.metrics.ObserveCommand("add", "invalid")
		return p.messages.InputEmpty
	case len(phrase) < MinPhraseLength:
		p.metrics.ObserveCommand("add", "invalid")
		return fmt.Sprintf(p.messages.PhraseTooShort, MinPhraseLength)
	}

	if !p.store.Add(phrase) {
		p.metrics.ObserveCommand("add", "unchanged")
		return fmt.Sprintf(p.messages.PhraseExists, phrase)
	}
	p.metrics.ObserveCommand("add", observability.ResultOK)
	p.metrics.SetPhrases(p.store.Snapshot().Len())
	p.logger.InfoContext(ctx, "Phrase added", "chat_id", msg.ChatID, "user_id", authorID(msg), "phrase", phrase)
	p.record(ctx, msg, PhraseAdded, phrase)
	return fmt.Sprintf(p.messages.PhraseAdded, phrase)
}

func (p *Processor) remove(ctx context.Context, msg Message, raw string) string {
	phrase := strings.TrimSpace(raw)
	if !p.store.Remove(phrase) {
		p.metrics.ObserveCommand("remove", "not_found")
		return fmt.Sprintf(p.messages.PhraseNotFound, phrase)
	}
	p.metrics.ObserveCommand("remove", observability.ResultOK)
	p.metrics.SetPhrases(p.store.Snapshot().Len())
	p.logger.InfoContext(ctx, "Phrase removed", "chat_id", msg.ChatID, "user_id", authorID(msg), "phrase", phrase)
	p.record(ctx, msg, PhraseRemoved, phrase)
	return fmt.Sprintf(p.messages.PhraseRemoved, phrase)
}

func (p *Processor) list() string {
	phrases := p.store.Snapshot().Phrases()
	if len(phrases) == 0 {
		return p.messages.ListEmpty
	}
	var sb strings.Builder
	if p.messages.ListHeader != "" {
		sb.WriteString(p.messages.ListHeader)
		sb.WriteString("\n")
	}
	for i, phrase := range phrases {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, phrase)
	}
	return sb.String()
}

func (p *Processor) help() string {
	var sb strings.Builder
	if p.messages.HelpHeader != "" {
		fmt.Fprintf(&sb, p.messages.HelpHeader, p.botUsername)
		sb.WriteString("\n")
	}
	for i, c := range commandTable {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("/" + c.Name)
		if c.Args != "" {
			sb.WriteString(" " + c.Args)
		}
		sb.WriteString(" - " + c.Description)
	}
	return sb.String()
}

func (p *Processor) record(ctx context.Context, msg Message, action PhraseAction, phrase string) {
	if p.journal == nil {
		return
	}
	change := PhraseChange{
		ChatID: msg.ChatID,
		UserID: authorID(msg),
		Action: action,
		Phrase: phrase,
		At:     p.now().UTC(),
	}
	if err := p.journal.RecordPhraseChange(ctx, change); err != nil {
		p.logger.WarnContext(ctx, "Failed to record phrase change", "action", action, "error", err)
	}
}

func authorID(msg Message) int64 {
	if msg.Author == nil {
		return 0
	}
	return msg.Author.ID
}
