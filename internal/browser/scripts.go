package browser

import (
	"fmt"

	json "github.com/json-iterator/go"
)

// controlSelector matches every fillable control, in document order
const controlSelector = "input, textarea, select"

// interactiveSelector is what the diagnostics count
const interactiveSelector = "input, textarea, select, button"

var (
	titleSelectors       = []string{"h1", "[data-testid*='job-title']", ".job-title", ".position-title"}
	companySelectors     = []string{"[data-testid*='company']", ".company-name", ".employer-name"}
	descriptionSelectors = []string{"[data-testid*='description']", ".job-description", "#job-description", ".description"}
)

// jsString renders s as a JavaScript string literal
func jsString(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(out)
}

func jsStrings(ss []string) string {
	out, err := json.Marshal(ss)
	if err != nil {
		return "[]"
	}
	return string(out)
}

// controlAt evaluates to the control at index, or null
func controlAt(index int) string {
	return fmt.Sprintf("document.querySelectorAll(%s)[%d]", jsString(controlSelector), index)
}

func countControlsJS() string {
	return fmt.Sprintf("document.querySelectorAll(%s).length", jsString(controlSelector))
}

// fieldsJS snapshots every control. The label is taken from label[for=id],
// then the enclosing <label>, then the parent's text when the parent is short
// and wraps no other control.
func fieldsJS(maxParentText int) string {
	return fmt.Sprintf(`
	(() => {
		const clean = t => (t || '').replace(/\s+/g, ' ').trim();
		const textOf = el => el ? clean(el.innerText || el.textContent) : '';

		const labelFor = el => {
			if (el.id) {
				const byFor = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
				const t = textOf(byFor);
				if (t) return t;
			}
			const wrap = el.closest('label');
			const wt = textOf(wrap);
			if (wt) return wt;
			const parent = el.parentElement;
			if (!parent || parent.querySelectorAll(%s).length > 1) return '';
			const pt = textOf(parent);
			return pt.length <= %d ? pt : '';
		};

		const visible = el => {
			const style = window.getComputedStyle(el);
			if (style.display === 'none' || style.visibility === 'hidden') return false;
			return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
		};

		const controls = Array.from(document.querySelectorAll(%s));
		return JSON.stringify(controls.map((el, i) => ({
			index: i,
			tag: el.tagName.toLowerCase(),
			type: (el.getAttribute('type') || el.type || '').toLowerCase(),
			name: el.getAttribute('name') || '',
			id: el.id || '',
			placeholder: el.getAttribute('placeholder') || '',
			ariaLabel: el.getAttribute('aria-label') || '',
			label: labelFor(el),
			required: !!el.required || el.getAttribute('aria-required') === 'true',
			visible: visible(el),
			options: el.tagName === 'SELECT'
				? Array.from(el.options).map(o => ({ value: o.value, text: clean(o.text) }))
				: undefined,
		})));
	})()`, jsString(controlSelector), maxParentText, jsString(controlSelector))
}

func jobInfoJS(maxDescription int) string {
	return fmt.Sprintf(`
	(() => {
		const clean = t => (t || '').replace(/\s+/g, ' ').trim();
		const first = sels => {
			for (const s of sels) {
				const el = document.querySelector(s);
				const t = el ? clean(el.innerText || el.textContent) : '';
				if (t) return t;
			}
			return '';
		};

		let description = first(%s);
		if (!description) {
			for (const el of document.querySelectorAll('p, div, section')) {
				const t = clean(el.innerText);
				if (t.length > 100 && t.length > description.length) description = t;
			}
		}

		return JSON.stringify({
			companyName: first(%s),
			jobTitle: first(%s),
			jobDescription: description.slice(0, %d),
		});
	})()`, jsStrings(descriptionSelectors), jsStrings(companySelectors), jsStrings(titleSelectors), maxDescription)
}

func diagnosticsJS(maxControls int) string {
	return fmt.Sprintf(`
	(() => {
		const all = Array.from(document.querySelectorAll(%s));
		const na = v => v || 'N/A';
		return JSON.stringify({
			title: document.title,
			url: window.location.href,
			forms: document.forms.length,
			interactive: all.length,
			firstControls: all.slice(0, %d).map(el =>
				el.tagName.toLowerCase() + ' (type: ' + na(el.getAttribute('type')) +
				', id: ' + na(el.id) + ', name: ' + na(el.getAttribute('name')) + ')'),
		});
	})()`, jsString(interactiveSelector), maxControls)
}

func highlightJS(index int, on bool) string {
	border, background := "''", "''"
	if on {
		border, background = jsString(highlightBorder), jsString(highlightBackground)
	}
	return fmt.Sprintf(`
	(() => {
		const el = %s;
		if (!el) return false;
		el.style.border = %s;
		el.style.backgroundColor = %s;
		return true;
	})()`, controlAt(index), border, background)
}

// selectJS sets the value and fires the events frameworks listen for. It
// reports whether the control took the value.
func selectJS(index int, value string) string {
	return fmt.Sprintf(`
	(() => {
		const el = %s;
		if (!el) return 'missing';
		el.value = %s;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return el.value === %s ? 'ok' : 'rejected';
	})()`, controlAt(index), jsString(value), jsString(value))
}

func valueJS(index int) string {
	return fmt.Sprintf(`(() => { const el = %s; return el ? String(el.value) : ''; })()`, controlAt(index))
}
