package intent

import "github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"

// quickReplies maps intent → language → the three suggestion chips the
// widget renders under the assistant reply.
var quickReplies = map[entity.Intent]map[string][3]string{
	entity.IntentGreeting: {
		"ja": {"会社を探す", "料金について", "サービスの使い方"},
		"en": {"Find companies", "About pricing", "How it works"},
		"vi": {"Tìm công ty", "Về giá cả", "Cách sử dụng"},
	},
	entity.IntentCompanyInfo: {
		"ja": {"会社を検索", "レビューを見る", "得意分野で絞り込む"},
		"en": {"Search companies", "Read reviews", "Filter by expertise"},
		"vi": {"Tìm kiếm công ty", "Xem đánh giá", "Lọc theo chuyên môn"},
	},
	entity.IntentPricing: {
		"ja": {"料金の相場", "見積もりを依頼", "会社に問い合わせ"},
		"en": {"Typical rates", "Request a quote", "Contact a company"},
		"vi": {"Mức giá phổ biến", "Yêu cầu báo giá", "Liên hệ công ty"},
	},
	entity.IntentFeatures: {
		"ja": {"検索機能について", "メッセージ機能", "レビュー機能"},
		"en": {"About search", "Messaging", "Reviews"},
		"vi": {"Về tìm kiếm", "Nhắn tin", "Đánh giá"},
	},
	entity.IntentSupport: {
		"ja": {"よくある質問", "お問い合わせ", "使い方ガイド"},
		"en": {"FAQ", "Contact support", "User guide"},
		"vi": {"Câu hỏi thường gặp", "Liên hệ hỗ trợ", "Hướng dẫn sử dụng"},
	},
	entity.IntentRegistration: {
		"ja": {"バイヤー登録", "ベンダー登録", "登録の流れ"},
		"en": {"Register as buyer", "Register as vendor", "Registration steps"},
		"vi": {"Đăng ký người mua", "Đăng ký nhà cung cấp", "Các bước đăng ký"},
	},
	entity.IntentSearchHelp: {
		"ja": {"技術で検索", "予算で検索", "おすすめの会社"},
		"en": {"Search by technology", "Search by budget", "Recommended companies"},
		"vi": {"Tìm theo công nghệ", "Tìm theo ngân sách", "Công ty đề xuất"},
	},
	entity.IntentGeneral: {
		"ja": {"会社を探す", "料金について", "お問い合わせ"},
		"en": {"Find companies", "About pricing", "Contact support"},
		"vi": {"Tìm công ty", "Về giá cả", "Liên hệ hỗ trợ"},
	},
}

// QuickReplies returns the three suggestion chips for an intent and
// language. Unknown languages fall back to Japanese; unknown intents fall
// back to the general set.
func QuickReplies(it entity.Intent, language string) []string {
	byLang, ok := quickReplies[it]
	if !ok {
		byLang = quickReplies[entity.IntentGeneral]
	}
	set, ok := byLang[language]
	if !ok {
		set = byLang["ja"]
	}
	return []string{set[0], set[1], set[2]}
}
