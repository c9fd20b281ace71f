package theme

const baseCSS = `.mdpreview { box-sizing: border-box; max-width: 860px; margin: 0 auto; padding: 2rem 1.5rem; line-height: 1.65; word-wrap: break-word; }
.mdpreview img { max-width: 100%; }
.mdpreview pre { position: relative; overflow-x: auto; padding: 1rem; border-radius: 6px; }
.mdpreview .table-wrap { overflow-x: auto; margin: 1rem 0; }
.mdpreview table { border-collapse: collapse; }
.mdpreview th, .mdpreview td { padding: .4rem .8rem; border: 1px solid var(--mdp-border); }
.mdpreview blockquote { margin: 0; padding: 0 1rem; border-left: 4px solid var(--mdp-border); color: var(--mdp-muted); }
.mdpreview .copy-button { position: absolute; top: .4rem; right: .4rem; font-size: .75rem; opacity: .6; cursor: pointer; }
.mdpreview .copy-button:hover { opacity: 1; }
.mdpreview-render-error { border: 2px solid #d1242f; border-radius: 6px; padding: 1rem; background: #fff0f0; color: #82071e; }
.mdpreview-render-error pre { white-space: pre-wrap; background: transparent; }
.mdpreview-diagnostic { font-family: ui-monospace, monospace; }
.mdpreview-article .mdpreview-byline { color: var(--mdp-muted); }
.mdpreview-tags { display: flex; gap: .5rem; list-style: none; padding: 0; }
.mdpreview-tags li { padding: 0 .5rem; border-radius: 999px; background: var(--mdp-border); }`

var builtin = map[string]string{
	"default": `:root { --mdp-bg: #ffffff; --mdp-fg: #1f2328; --mdp-muted: #59636e; --mdp-border: #d1d9e0; --mdp-link: #0969da; }
body { background: var(--mdp-bg); color: var(--mdp-fg); font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; }
.theme-default a { color: var(--mdp-link); }
.theme-default pre { background: #f6f8fa; }`,

	"dark": `:root { --mdp-bg: #0d1117; --mdp-fg: #e6edf3; --mdp-muted: #9198a1; --mdp-border: #3d444d; --mdp-link: #4493f8; }
body { background: var(--mdp-bg); color: var(--mdp-fg); font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; }
.theme-dark a { color: var(--mdp-link); }
.theme-dark pre { background: #151b23; }`,

	"sepia": `:root { --mdp-bg: #f4ecd8; --mdp-fg: #433422; --mdp-muted: #7a6a53; --mdp-border: #d8c8a8; --mdp-link: #8a4b08; }
body { background: var(--mdp-bg); color: var(--mdp-fg); font-family: Georgia, "Times New Roman", serif; }
.theme-sepia a { color: var(--mdp-link); }
.theme-sepia pre { background: #ebe0c6; }`,
}
