package relay

import "fmt"

const (
	messageMirrorStarted         = ":microphone2: **開始串流轉錄**"
	messageMirrorStopped         = ":pause_button: **已停止串流轉錄**"
	messageMirrorAttachment      = ":page_facing_up: **轉錄內容**"
	messageMirrorFailedFormat    = ":warning: **串流初始化失敗：%s**"
	messageMirrorSessionFormat   = "-# 工作階段：%s"
	messageMirrorEmptyTranscript = "-# 沒有轉錄內容。"
)

func mirrorFailed(reason string) string {
	return fmt.Sprintf(messageMirrorFailedFormat, reason)
}
