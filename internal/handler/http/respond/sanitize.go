package respond

import (
	"regexp"
)

var (
	// プロバイダ API キーパターン
	// 注意: Bearerパターンを先に適用する（より具体的なパターンから）
	bearerTokenPattern = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]+`)
	// ゲートウェイのauth tokenは、既にマスクされた文字列（*を含む）にマッチしないようにする
	providerKeyPattern = regexp.MustCompile(`\b(?:sk|key|tok)[-_][a-zA-Z0-9]{10,}\b`)

	// データベースパスワードパターン（DSN内）
	dbPasswordPattern = regexp.MustCompile(`://([^:]+):([^@]+)@`)
)

// SanitizeError は機密情報をマスクしたエラーメッセージを返す
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()

	// APIキーのマスク（順序重要: より具体的なパターンから適用）
	msg = bearerTokenPattern.ReplaceAllString(msg, "Bearer ****")
	msg = providerKeyPattern.ReplaceAllString(msg, "****")

	// DBパスワードのマスク
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")

	return msg
}
