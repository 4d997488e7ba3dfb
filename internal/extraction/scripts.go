// internal/extraction/scripts.go
package extraction

// lazyLoadScript scrolls down in viewport-relative steps to trigger lazy
// loading, never past maxViewports screens, then returns to the top.
// Arguments: step ratio, viewport cap, pause in milliseconds.
const lazyLoadScript = `(async function(stepRatio, maxViewports, delayMs) {
	const step = Math.max(1, window.innerHeight * stepRatio);
	const limit = Math.min(document.body ? document.body.scrollHeight : 0, window.innerHeight * maxViewports);
	const pause = (ms) => new Promise((resolve) => setTimeout(resolve, ms));
	for (let pos = 0; pos < limit; pos += step) {
		window.scrollTo(0, pos);
		await pause(delayMs);
	}
	window.scrollTo(0, 0);
	await pause(200);
	return true;
})(%g, %d, %d)`

// collectScript returns the raw page items in document order. Texts are only
// whitespace-folded here; cleaning and de-duplication happen in Go. Texts far
// beyond the length ceiling and items past rawLimit per section are dropped to
// bound the payload.
// Arguments: text length ceiling (UTF-16 units), per-section raw item limit.
const collectScript = `(function(maxLen, rawLimit) {
	const norm = (s) => (s == null ? '' : String(s)).replace(/\s+/g, ' ').trim();
	const keep = (s) => s.length > 0 && s.length <= maxLen;
	const visible = (el) => !!el.offsetParent;
	const out = {
		url: window.location.href,
		title: document.title || '',
		headings: [],
		controls: [],
		blocks: [],
		other: [],
	};

	document.querySelectorAll('h1, h2, h3').forEach((h) => {
		if (out.headings.length >= rawLimit) return;
		const text = norm(h.innerText);
		if (keep(text)) out.headings.push({ tag: h.tagName, text: text });
	});

	document.querySelectorAll('button, a[href], input, select, textarea, [role="button"], [role="link"]').forEach((el) => {
		if (out.controls.length >= rawLimit) return;
		if (!visible(el) && el.tagName !== 'INPUT') return;
		const text = norm(el.innerText || el.getAttribute('aria-label') || el.getAttribute('placeholder') || el.getAttribute('value'));
		if (!keep(text)) return;
		out.controls.push({
			tag: el.tagName.toLowerCase(),
			type: el.getAttribute('type') || '',
			id: el.id || '',
			name: el.getAttribute('name') || '',
			text: text,
		});
	});

	document.querySelectorAll('article, [class*="card"], [class*="item"], [class*="vacancy"], [class*="product"], [class*="email"], [class*="letter"], li').forEach((el) => {
		if (out.blocks.length >= rawLimit) return;
		if (!visible(el) || el.closest('nav, header, footer')) return;
		const text = norm(el.innerText);
		if (keep(text)) out.blocks.push(text);
	});

	document.querySelectorAll('p, span, div, td, label').forEach((el) => {
		if (out.other.length >= rawLimit) return;
		if (!visible(el) || el.querySelector('button, a, input')) return;
		const text = norm(el.innerText);
		if (keep(text)) out.other.push(text);
	});

	return out;
})(%d, %d)`
