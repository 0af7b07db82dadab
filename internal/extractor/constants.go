package extractor

// Heuristic scoring weights. These are empirically tuned: changing any of
// them changes which element is picked as main content.
const (
	CharsPerPoint        = 100.0
	ParagraphWeight      = 3.0
	LinkDensityPenalty   = 50.0
	PositiveHintWeight   = 20.0
	NegativeHintPenalty  = 30.0
	DefaultLocatorMinLen = 500
	DefaultMinContentLen = 100
)

// Landmark selectors tried before scoring, in priority order
var LandmarkSelectors = []string{
	"main",
	"article",
	"[role='main']",
	".content",
	".main-content",
	".article-body",
	"#content",
	"#main",
	".entry-content",
	".post-content",
	".page-content",
}

// ScoringCandidates are the block-level elements considered by the scoring pass
const ScoringCandidates = "div, section, article, main"

var positiveHints = []string{"content", "article", "main", "body", "text", "post", "entry"}

var negativeHints = []string{"sidebar", "menu", "nav", "footer", "header", "comment", "ad"}

// BoilerplateSelectors are stripped from the working copy before generic extraction
var BoilerplateSelectors = []string{
	"script",
	"style",
	"noscript",
	"iframe",
	"nav",
	"header",
	"footer",
	"aside",
	".advertisement",
	".ads",
	".banner",
	".navigation",
	".menu",
	".sidebar",
	"#comments",
	".related-articles",
	".social-share",
	".cookie-notice",
}

// Meta tag properties
const (
	OGTitle       = "og:title"
	OGDescription = "og:description"
	TwitterDesc   = "twitter:description"
	MetaDesc      = "description"
	MetaAuthor    = "author"
	ArticleAuthor = "article:author"
	PublishedTime = "article:published_time"
)

// Text processing constants
const (
	DoubleNewline = "\n\n"
	SingleNewline = "\n"
	SingleSpace   = " "
)

// Description bounds for the first-paragraph fallback
const (
	MinDescriptionLen = 50
	MaxDescriptionLen = 300
)

// Sentinels used by the minimal fallback strategy
const (
	NoTitle = "No title"
)
