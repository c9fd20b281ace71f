package template

var builtin = map[string]string{
	"article": `<article class="mdpreview-article">
<header class="mdpreview-meta">
{{- with .title}}<h1 class="mdpreview-title">{{.}}</h1>{{end}}
<p class="mdpreview-byline">
{{- with .author}}<span class="author">{{.}}</span>{{end}}
{{- with .date}}<time datetime="{{.}}">{{.}}</time>{{end}}
</p>
{{- with .tags}}<ul class="mdpreview-tags">{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
</header>
{{.content}}
</article>`,
	"plain": `{{.content}}`,
}
