// Package scripts holds the verbatim JavaScript source run inside the
// assistant UI's execution context via Runtime.evaluate. These are the only
// place the bridge reaches into the DOM; the core never parses HTML itself,
// it only interprets the small JSON shapes these scripts return.
package scripts

import (
	"encoding/json"
	"strings"
)

// Name identifies one script in the registry by name/version, so the core
// can log which probe produced a given result without embedding source.
type Name string

const (
	StopButtonProbe      Name = "stop_button_probe.v1"
	QuotaProbe           Name = "quota_probe.v1"
	StructuredTextProbe  Name = "structured_text_probe.v1"
	LegacyTextProbe      Name = "legacy_text_probe.v1"
	ProcessLogProbe      Name = "process_log_probe.v1"
	ApprovalProbe        Name = "approval_probe.v1"
	ApproveClick         Name = "approve_click.v1"
	DenyClick            Name = "deny_click.v1"
	PlanningProbe        Name = "planning_probe.v1"
	PlanOpenClick        Name = "plan_open_click.v1"
	PlanProceedClick     Name = "plan_proceed_click.v1"
	PlanExtractContent   Name = "plan_extract_content.v1"
	ErrorPopupProbe      Name = "error_popup_probe.v1"
	ErrorDismissClick    Name = "error_dismiss_click.v1"
	ErrorRetryClick      Name = "error_retry_click.v1"
	ErrorCopyDebugClick  Name = "error_copy_debug_click.v1"
	ReadClipboard        Name = "read_clipboard.v1"
	UserMessageProbe     Name = "user_message_probe.v1"
	ActivateByTitle      Name = "activate_by_title.v1"
	OpenPastConversations Name = "open_past_conversations.v1"
	ActiveTitleProbe     Name = "active_title_probe.v1"
	StopButtonClick      Name = "stop_button_click.v1"
)

// registry maps each Name to its source. Scripts are stored verbatim; the
// core never edits them at runtime, only selects one by name and ships it
// to Runtime.evaluate.
var registry = map[Name]string{
	StopButtonProbe: `(() => {
		const stopBtn = document.querySelector('[data-testid="stop-generating"], [aria-label*="Stop" i]');
		return { isGenerating: !!stopBtn && stopBtn.offsetParent !== null };
	})()`,

	QuotaProbe: `(() => {
		const text = document.body.innerText || '';
		return /quota|rate limit|usage limit/i.test(text.slice(0, 4000));
	})()`,

	StructuredTextProbe: `(() => {
		const nodes = document.querySelectorAll('[data-message-kind]');
		const segments = [];
		nodes.forEach((n, i) => {
			segments.push({
				kind: n.getAttribute('data-message-kind'),
				text: n.innerText || '',
				messageIndex: i,
				domPath: n.getAttribute('data-dom-path') || '',
			});
		});
		return { source: 'structured', extractedAt: Date.now(), segments };
	})()`,

	LegacyTextProbe: `(() => {
		const candidates = document.querySelectorAll('.assistant-message, .response-text, [role="article"]');
		let best = '';
		candidates.forEach(c => { if ((c.innerText || '').length > best.length) best = c.innerText; });
		return best;
	})()`,

	ProcessLogProbe: `(() => {
		const items = document.querySelectorAll('[data-activity-line]');
		return Array.from(items).map(i => (i.innerText || '').trim()).filter(Boolean);
	})()`,

	ApprovalProbe: `(() => {
		const dialog = document.querySelector('[role="dialog"][data-kind="approval"]');
		if (!dialog) return null;
		const btn = dialog.querySelector('button[data-action="allow"], button');
		const desc = dialog.querySelector('[data-description]');
		return { buttonText: btn ? btn.innerText.trim() : '', description: desc ? desc.innerText.trim() : '' };
	})()`,

	ApproveClick: `(() => {
		const btn = Array.from(document.querySelectorAll('button')).find(b => /allow/i.test(b.innerText));
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,

	DenyClick: `(() => {
		const btn = Array.from(document.querySelectorAll('button')).find(b => /deny/i.test(b.innerText));
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,

	PlanningProbe: `(() => {
		const dialog = document.querySelector('[role="dialog"][data-kind="planning"]');
		if (!dialog) return null;
		const btn = dialog.querySelector('button');
		const desc = dialog.querySelector('[data-description]');
		return { buttonText: btn ? btn.innerText.trim() : '', description: desc ? desc.innerText.trim() : '' };
	})()`,

	PlanOpenClick: `(() => {
		const btn = Array.from(document.querySelectorAll('button')).find(b => /open plan/i.test(b.innerText));
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,

	PlanProceedClick: `(() => {
		const btn = Array.from(document.querySelectorAll('button')).find(b => /proceed/i.test(b.innerText));
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,

	PlanExtractContent: `(() => {
		const el = document.querySelector('[data-kind="planning"] [data-plan-content]');
		return el ? el.innerText : '';
	})()`,

	ErrorPopupProbe: `(() => {
		const dialog = document.querySelector('[role="alertdialog"], [data-kind="error"]');
		if (!dialog) return null;
		const title = dialog.querySelector('[data-title]');
		const body = dialog.querySelector('[data-body]');
		return { title: title ? title.innerText.trim() : '', body: body ? body.innerText.trim() : '' };
	})()`,

	ErrorDismissClick: `(() => {
		const btn = Array.from(document.querySelectorAll('button')).find(b => /dismiss|close/i.test(b.innerText));
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,

	ErrorRetryClick: `(() => {
		const btn = Array.from(document.querySelectorAll('button')).find(b => /retry/i.test(b.innerText));
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,

	ErrorCopyDebugClick: `(() => {
		const btn = Array.from(document.querySelectorAll('button')).find(b => /copy debug/i.test(b.innerText));
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,

	ReadClipboard: `(async () => {
		try {
			return await navigator.clipboard.readText();
		} catch (e) {
			return null;
		}
	})()`,

	UserMessageProbe: `(() => {
		const bubbles = document.querySelectorAll('[data-role="user-message"]');
		if (!bubbles.length) return null;
		const last = bubbles[bubbles.length - 1];
		return { text: (last.innerText || '').trim() };
	})()`,

	ActivateByTitle: `(() => {
		const items = document.querySelectorAll('[data-session-title]');
		for (const el of items) {
			if ((el.getAttribute('data-session-title') || '').trim() === TITLE_PLACEHOLDER) {
				el.click();
				return { ok: true };
			}
		}
		return { ok: false };
	})()`,

	OpenPastConversations: `(() => {
		const btn = Array.from(document.querySelectorAll('button, a')).find(b => /past conversations/i.test(b.innerText));
		if (!btn) return { ok: false };
		btn.click();
		return { ok: true };
	})()`,

	ActiveTitleProbe: `(() => {
		const el = document.querySelector('[data-active-session-title]');
		return el ? (el.innerText || '').trim() : '';
	})()`,

	StopButtonClick: `(() => {
		const btn = document.querySelector('[data-testid="stop-generating"], [aria-label*="Stop" i]');
		if (!btn) return { ok: false, err: 'not found' };
		btn.click();
		return { ok: true };
	})()`,
}

// SourceWithTitle returns name's script with its TITLE_PLACEHOLDER token
// substituted by a JSON-encoded title, safe to splice into the expression
// source without breaking out of the string literal.
func SourceWithTitle(name Name, title string) string {
	encoded, _ := json.Marshal(title)
	return strings.Replace(registry[name], "TITLE_PLACEHOLDER", string(encoded), 1)
}

// Source returns the verbatim script for name.
func Source(name Name) string {
	return registry[name]
}
