package view

import (
	"bytes"
	"html/template"
)

// SharePageData provides the dynamic fields required by the share viewer template.
type SharePageData struct {
	Title   string
	ID      string
	APIPath string
}

// The page must not redeem on load; the fetch only runs on an explicit click.
var sharePageTmpl = template.Must(template.New("share_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<meta name="robots" content="noindex, nofollow" />
	<meta name="referrer" content="no-referrer" />
	<title>{{.Title}}</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			--accent-strong: #38bdf8;
			--danger: #fca5a5;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(520px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
		}
		h1 { font-size: 1.5rem; margin-bottom: 6px; }
		p { color: var(--muted); margin-top: 0; }
		.code {
			margin: 24px 0 8px;
			padding: 18px;
			border-radius: 14px;
			background: rgba(125, 211, 252, 0.07);
			border: 1px solid rgba(125, 211, 252, 0.25);
			font-size: 2.4rem;
			letter-spacing: 0.2em;
			text-align: center;
			font-variant-numeric: tabular-nums;
		}
		.bar { height: 4px; border-radius: 2px; background: var(--border); overflow: hidden; }
		.bar > div { height: 100%; background: var(--accent); transition: width 0.1s linear; }
		button {
			padding: 0 28px;
			height: 48px;
			border: 0;
			border-radius: 999px;
			background: linear-gradient(120deg, var(--accent), var(--accent-strong));
			color: #050708;
			font-weight: 600;
			cursor: pointer;
		}
		.meta { margin-top: 16px; font-size: 0.85rem; color: rgba(231, 236, 255, 0.65); }
		.error { color: var(--danger); }
		[hidden] { display: none !important; }
	</style>
</head>
<body>
	<div class="card">
		<h1>Shared one-time code</h1>
		<p id="intro">Codes are revealed on request. A burn-after-reading link can only be opened once.</p>

		<button id="reveal" type="button">Reveal code</button>

		<div id="view" hidden>
			<div class="code" id="code">------</div>
			<div class="bar"><div id="progress" style="width: 0%"></div></div>
			<div class="meta" id="countdown"></div>
			<div class="meta" id="expiry"></div>
		</div>

		<p class="error" id="error" hidden></p>
	</div>

	<script>
		(function() {
			const apiPath = {{.APIPath}};
			const reveal = document.getElementById("reveal");
			const view = document.getElementById("view");
			const codeEl = document.getElementById("code");
			const progress = document.getElementById("progress");
			const countdown = document.getElementById("countdown");
			const expiry = document.getElementById("expiry");
			const errorEl = document.getElementById("error");

			const fail = (message) => {
				view.hidden = true;
				errorEl.textContent = message;
				errorEl.hidden = false;
			};

			const render = (data) => {
				const now = Math.floor(Date.now() / 1000);
				const index = Math.floor((now - data.firstCodeTimestamp) / data.period);
				if (index >= data.codes.length) {
					fail(data.burnAfterReading ? "The disclosed codes have run out." : "No codes remain. Reload to fetch more.");
					return false;
				}
				const current = Math.max(index, 0);
				const remaining = data.firstCodeTimestamp + (current + 1) * data.period - now;
				codeEl.textContent = data.codes[current];
				progress.style.width = ((remaining / data.period) * 100) + "%";
				countdown.textContent = "Valid for " + remaining + "s";
				return true;
			};

			reveal.addEventListener("click", async () => {
				reveal.disabled = true;
				try {
					const resp = await fetch(apiPath, { cache: "no-store" });
					const data = await resp.json();
					if (!resp.ok) {
						fail(data.error || "Could not open this link.");
						return;
					}
					reveal.hidden = true;
					view.hidden = false;
					expiry.textContent = "Link expires " + new Date(data.expiresAt).toLocaleString();
					if (!render(data)) return;
					const timer = setInterval(() => { if (!render(data)) clearInterval(timer); }, 250);
				} catch (e) {
					fail("Network error. Try again.");
					reveal.disabled = false;
				}
			});
		})();
	</script>
</body>
</html>
`))

// RenderSharePage expands the share viewer template with the provided data.
func RenderSharePage(data SharePageData) (string, error) {
	if data.Title == "" {
		data.Title = "One-time code"
	}
	var buf bytes.Buffer
	if err := sharePageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
