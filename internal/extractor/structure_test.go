package extractor

import (
	"net/url"
	"testing"

	"sheet2docs/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStructureBlocks(t *testing.T) {
	base, _ := url.Parse("https://example.com/posts/1")
	doc := mustDoc(t, `<html><body><div id="root">
		<h2>Intro</h2>
		<p>Some <strong>bold</strong> and <em>italic</em> text.<br>Second line.</p>
		<h5>Deep heading</h5>
		<ol><li>first</li><li>  </li><li>second</li></ol>
		<blockquote><p>Quoted one.</p><p>Quoted two.</p></blockquote>
		<pre><code class="language-go">fmt.Println("hi")
return</code></pre>
		<figure><img src="/img/photo.jpg" alt="A photo"><figcaption>Caption text</figcaption></figure>
		<img src="data:image/png;base64,AAAA">
		<img src="/static/site-logo.png">
		<script>var x = 1;</script>
		<section><p>   </p><div>Loose text</div></section>
	</div></body></html>`)

	blocks := BuildStructure(doc.Find("#root"), base)

	want := []models.ContentBlock{
		models.Heading(2, "Intro"),
		models.Paragraph("Some **bold** and *italic* text.\nSecond line."),
		models.Heading(3, "Deep heading"),
		models.List(true, []string{"first", "second"}),
		models.Quote("Quoted one.\nQuoted two."),
		models.Code("go", "fmt.Println(\"hi\")\nreturn"),
		models.Image("https://example.com/img/photo.jpg", "A photo"),
		models.Paragraph("Caption text"),
		models.Paragraph("Loose text"),
	}
	assert.Equal(t, want, blocks)
}

func TestBuildStructureNeverEmitsEmptyBlocks(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<h1> </h1><p>	</p><ul><li></li></ul><blockquote> </blockquote>
		<pre>   </pre><p><span>  </span></p><img alt="no src">
		<p>kept</p>
	</body></html>`)

	blocks := BuildStructure(doc.Find("body"), nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, models.Paragraph("kept"), blocks[0])

	for _, b := range blocks {
		assert.False(t, b.IsEmpty())
	}
}

func TestBuildStructureNestedListsAndTables(t *testing.T) {
	doc := mustDoc(t, `<html><body><div>
		<ul><li>parent<ul><li>child</li></ul></li><li>sibling</li></ul>
		<table><tr><th>Name</th><th>Value</th></tr><tr><td>a</td><td>1</td></tr></table>
	</div></body></html>`)

	blocks := BuildStructure(doc.Find("div").First(), nil)
	require.Len(t, blocks, 3)
	assert.Equal(t, []string{"parent", "child", "sibling"}, blocks[0].Items)
	assert.False(t, blocks[0].Ordered)
	assert.Equal(t, "Name | Value", blocks[1].Text)
	assert.Equal(t, "a | 1", blocks[2].Text)
}

func TestFlattenRoundTrip(t *testing.T) {
	doc := mustDoc(t, `<html><body><div><h1>Head</h1><p>First para.</p><p>Second para.</p><ul><li>one</li><li>two</li></ul></div></body></html>`)

	blocks := BuildStructure(doc.Find("div"), nil)
	require.Len(t, blocks, 4)
	assert.Equal(t, models.BlockHeading, blocks[0].Kind)
	assert.Equal(t, models.BlockParagraph, blocks[1].Kind)
	assert.Equal(t, models.BlockParagraph, blocks[2].Kind)
	assert.Equal(t, models.BlockList, blocks[3].Kind)

	assert.Equal(t, "# Head\n\nFirst para.\n\nSecond para.\n\n- one\n- two", Flatten(blocks))
}

func TestCodeLanguageDefaultsToText(t *testing.T) {
	doc := mustDoc(t, `<html><body><pre>plain code</pre><pre class="lang-python">x = 1</pre></body></html>`)

	blocks := BuildStructure(doc.Find("body"), nil)
	require.Len(t, blocks, 2)
	assert.Equal(t, "text", blocks[0].Language)
	assert.Equal(t, "python", blocks[1].Language)
}
