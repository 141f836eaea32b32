package job

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Serialize writes the engine's live state as a key=value text stream:
// manager-level counters first, then one blank-line-terminated stanza per
// installed job, in id order.
func (e *Engine) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "current-job-id=%d\n", e.nextID)
	fmt.Fprintf(bw, "n-installed-jobs=%d\n", e.nInstalled)
	fmt.Fprintf(bw, "n-failed-jobs=%d\n", e.nFailed)
	fmt.Fprintln(bw)

	for _, j := range e.Jobs() {
		j.serialize(bw)
	}

	return bw.Flush()
}

func (j *Job) serialize(w io.Writer) {
	fmt.Fprintf(w, "job-unit=%s\n", j.u.Name)
	fmt.Fprintf(w, "job-id=%d\n", j.id)
	fmt.Fprintf(w, "job-type=%s\n", j.kind)
	fmt.Fprintf(w, "job-state=%s\n", j.state)
	fmt.Fprintf(w, "job-invocation=%s\n", j.invocation)
	fmt.Fprintf(w, "job-override=%s\n", yesNo(j.override))
	fmt.Fprintf(w, "job-irreversible=%s\n", yesNo(j.irreversible))
	fmt.Fprintf(w, "job-sent-dbus-new-signal=%s\n", yesNo(j.sentNewSignal))
	fmt.Fprintf(w, "job-ignore-order=%s\n", yesNo(j.ignoreOrder))
	if j.beginUsec > 0 {
		fmt.Fprintf(w, "job-begin=%d\n", j.beginUsec)
	}
	for _, s := range j.subscribers {
		fmt.Fprintf(w, "subscribed=%s\n", s)
	}
	fmt.Fprintln(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseBool(v string) bool { return v == "yes" || v == "true" || v == "1" }

// Deserialize reconstructs jobs from a stream produced by Serialize.
// Unknown keys are logged and skipped; a job whose slot is already
// occupied, or whose unit is not registered, is dropped the same way.
// Deserialized jobs carry the reloaded mark so the finish path knows to
// park them in pendingFinished while the reload is still in progress.
func (e *Engine) Deserialize(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Manager-level header, up to the first blank line
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			e.logf("ignoring malformed serialization line %q", line)
			continue
		}
		switch key {
		case "current-job-id":
			if n, err := strconv.ParseUint(value, 10, 32); err == nil && uint32(n) > e.nextID {
				e.nextID = uint32(n)
			}
		case "n-installed-jobs":
			if n, err := strconv.ParseUint(value, 10, 64); err == nil {
				e.nInstalled = n
			}
		case "n-failed-jobs":
			if n, err := strconv.ParseUint(value, 10, 64); err == nil {
				e.nFailed = n
			}
		default:
			e.logf("ignoring unknown manager serialization key %q", key)
		}
	}

	// Job stanzas
	stanza := map[string]string{}
	var subscribers []string
	flush := func() {
		if len(stanza) > 0 {
			if err := e.installDeserialized(stanza, subscribers); err != nil {
				e.logf("dropping deserialized job: %v", err)
			}
		}
		stanza = map[string]string{}
		subscribers = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			e.logf("ignoring malformed serialization line %q", line)
			continue
		}
		if key == "subscribed" {
			subscribers = append(subscribers, value)
			continue
		}
		stanza[key] = value
	}
	flush()

	return scanner.Err()
}

func (e *Engine) installDeserialized(stanza map[string]string, subscribers []string) error {
	u := e.units[stanza["job-unit"]]
	if u == nil {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, stanza["job-unit"])
	}

	id64, err := strconv.ParseUint(stanza["job-id"], 10, 32)
	if err != nil {
		return fmt.Errorf("bad job-id %q: %w", stanza["job-id"], err)
	}
	id := uint32(id64)

	t := TypeFromString(stanza["job-type"])
	if t == TypeInvalid {
		return fmt.Errorf("%w: %q", ErrInvalidType, stanza["job-type"])
	}

	state := StateFromString(stanza["job-state"])
	if state != StateWaiting && state != StateRunning {
		return fmt.Errorf("bad job-state %q", stanza["job-state"])
	}

	slot, uj := e.slotFor(u, t)
	if uj != nil {
		return fmt.Errorf("%w: unit %s", ErrSlotOccupied, u.Name)
	}
	if e.jobs[id] != nil {
		return fmt.Errorf("duplicate job id %d", id)
	}

	j := &Job{
		id:       id,
		u:        u,
		kind:     t,
		state:    StateWaiting,
		result:   ResultInvalidValue,
		reloaded: true,
	}
	j.override = parseBool(stanza["job-override"])
	j.irreversible = parseBool(stanza["job-irreversible"])
	j.sentNewSignal = parseBool(stanza["job-sent-dbus-new-signal"])
	j.ignoreOrder = parseBool(stanza["job-ignore-order"])
	j.subscribers = subscribers

	if v, ok := stanza["job-invocation"]; ok {
		if inv, err := parseInvocation(v); err == nil {
			j.invocation = inv
		} else {
			e.logf("ignoring bad job-invocation %q: %v", v, err)
		}
	}
	if v, ok := stanza["job-begin"]; ok {
		if begin, err := strconv.ParseUint(v, 10, 64); err == nil {
			j.beginUsec = begin
		} else {
			e.logf("ignoring bad job-begin %q: %v", v, err)
		}
	}

	for key := range stanza {
		switch key {
		case "job-unit", "job-id", "job-type", "job-state", "job-invocation",
			"job-override", "job-irreversible", "job-sent-dbus-new-signal",
			"job-ignore-order", "job-begin":
		default:
			e.logf("ignoring unknown job serialization key %q", key)
		}
	}

	j.installed = true
	slot[u] = j
	e.jobs[id] = j
	if id >= e.nextID {
		e.nextID = id
	}

	if state == StateRunning {
		e.setState(j, StateRunning)
	}

	return nil
}

// Coldplug re-arms every deserialized job: timers resume from the
// preserved begin timestamp and waiting jobs go back on the run queue.
func (e *Engine) Coldplug() {
	for _, j := range e.Jobs() {
		e.startTimer(j)
		if j.state == StateWaiting {
			e.addToRunQueue(j)
		}
	}
}

// BeginReload enters the live-reload window: notifications are suppressed
// and reloaded jobs that finish are parked instead of freed
func (e *Engine) BeginReload() {
	e.reloading = true
}

// EndReload leaves the live-reload window and delivers the removal
// notifications for jobs that finished while it was open
func (e *Engine) EndReload() {
	e.reloading = false
	pending := e.pendingFinished
	e.pendingFinished = nil
	for _, j := range pending {
		e.emitRemoved(j)
	}
}

// Reloading reports whether a live-reload is in progress
func (e *Engine) Reloading() bool { return e.reloading }

func (e *Engine) logf(format string, args ...any) {
	if e.warnf != nil {
		e.warnf(format, args...)
	}
}
