package intent

import (
	"regexp"
	"strings"

	"github.com/tsubouchi/vn-offshore-apiserver/internal/domain/entity"
)

// rule pairs an intent with the patterns that select it. Declaration order
// in the table is priority order: the first rule with any match wins.
type rule struct {
	intent   entity.Intent
	patterns []*regexp.Regexp
}

// table covers English, Japanese and Vietnamese keyword variants. Input is
// lowercased before matching, so English patterns are written lowercase.
var table = []rule{
	{
		intent: entity.IntentGreeting,
		patterns: compile(
			`こんにちは`, `こんばんは`, `おはよう`, `はじめまして`,
			`\bhello\b`, `\bhi\b`, `\bhey\b`, `good (morning|afternoon|evening)`,
			`xin chào`, `chào bạn`, `chào buổi`,
		),
	},
	{
		intent: entity.IntentPricing,
		patterns: compile(
			`料金`, `価格`, `費用`, `単価`, `見積`,
			`\bprice\b`, `\bpricing\b`, `\bcost\b`, `\bfee\b`, `\bquote\b`, `\bbudget\b`,
			`giá`, `chi phí`, `báo giá`,
		),
	},
	{
		intent: entity.IntentCompanyInfo,
		patterns: compile(
			`会社`, `企業`, `ベンダー`, `開発会社`, `オフショア`,
			`\bcompany\b`, `\bcompanies\b`, `\bvendor\b`, `offshore (team|develop)`,
			`công ty`, `doanh nghiệp`, `nhà cung cấp`,
		),
	},
	{
		intent: entity.IntentFeatures,
		patterns: compile(
			`機能`, `できること`, `使い方`, `サービス内容`,
			`\bfeature\b`, `\bfeatures\b`, `what can`, `how does .* work`,
			`tính năng`, `chức năng`,
		),
	},
	{
		intent: entity.IntentSupport,
		patterns: compile(
			`サポート`, `問い合わせ`, `助けて`, `困って`,
			`\bsupport\b`, `help me`, `\bcontact\b`, `\btrouble\b`, `\bissue\b`, `\bproblem\b`,
			`hỗ trợ`, `giúp tôi`, `liên hệ`,
		),
	},
	{
		intent: entity.IntentRegistration,
		patterns: compile(
			`登録`, `アカウント`, `サインアップ`, `会員`,
			`\bregister\b`, `\bregistration\b`, `sign ?up`, `create .* account`, `\bmembership\b`,
			`đăng ký`, `tài khoản`,
		),
	},
	{
		intent: entity.IntentSearchHelp,
		patterns: compile(
			`検索`, `探し`, `見つけ`, `絞り込み`,
			`\bsearch\b`, `\bfind\b`, `looking for`, `\bfilter\b`,
			`tìm kiếm`, `tìm công ty`,
		),
	},
}

// Detect maps raw user text to an intent. It is a pure function: identical
// input always yields the identical intent. Unmatched text falls back to
// IntentGeneral.
func Detect(message string) entity.Intent {
	m := strings.ToLower(message)
	for _, r := range table {
		for _, p := range r.patterns {
			if p.MatchString(m) {
				return r.intent
			}
		}
	}
	return entity.IntentGeneral
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
