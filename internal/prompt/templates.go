package prompt

// Template is a fixed persona preamble applied in front of a question in
// place of the conversation-memory context.
type Template struct {
	Key         string
	Name        string
	Description string
	preamble    string
}

// templates is the fixed catalog, in display order.
var templates = []Template{
	{
		Key:         "coding",
		Name:        "💻 コーディング支援",
		Description: "プログラミングの質問に詳細なコード例つきで回答します",
		preamble:    "あなたは経験豊富なプログラマーです。コード例を交えて、わかりやすく技術的に正確に回答してください。",
	},
	{
		Key:         "translation",
		Name:        "🌐 翻訳モード",
		Description: "日本語と英語を相互に翻訳します",
		preamble:    "あなたは翻訳者です。入力が日本語なら英語に、英語なら日本語に、自然な表現で翻訳してください。",
	},
	{
		Key:         "creative",
		Name:        "✨ 創作モード",
		Description: "物語やアイデアなどの創作を手伝います",
		preamble:    "あなたは創造力豊かな作家です。自由な発想で魅力的な文章を書いてください。",
	},
	{
		Key:         "summary",
		Name:        "📝 要約モード",
		Description: "長い文章を簡潔に要約します",
		preamble:    "以下の内容を重要なポイントを落とさず、簡潔に要約してください。",
	},
	{
		Key:         "teacher",
		Name:        "👨‍🏫 教師モード",
		Description: "初心者にもわかるように丁寧に教えます",
		preamble:    "あなたは優しい教師です。専門用語を避け、例え話を使って初心者にもわかるように説明してください。",
	},
	{
		Key:         "business",
		Name:        "💼 ビジネスモード",
		Description: "ビジネス文書や敬語表現を支援します",
		preamble:    "あなたはビジネスの専門家です。丁寧なビジネス日本語で、実務的に回答してください。",
	},
	{
		Key:         "debug",
		Name:        "🐛 デバッグモード",
		Description: "エラーや不具合の原因を分析します",
		preamble:    "あなたはデバッグの専門家です。エラーの原因を特定し、修正方法を順を追って説明してください。",
	},
	{
		Key:         "brainstorm",
		Name:        "💡 ブレインストーミング",
		Description: "アイデア出しを手伝います",
		preamble:    "ブレインストーミングです。質より量を重視して、多様な視点からアイデアを10個挙げてください。",
	},
}

// Templates returns the catalog in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// ApplyTemplate renders a question through a template's preamble. The second
// return value reports whether the key named a known template.
func ApplyTemplate(key, question string) (string, bool) {
	for _, t := range templates {
		if t.Key == key {
			return t.preamble + "\n\n" + question, true
		}
	}
	return question, false
}
