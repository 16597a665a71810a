package stream

const (
	markerInfo       = "ℹ️ "
	markerError      = "❌ "
	markerDiagnostic = "📩 "

	messageConnecting     = "開始建立音訊串流..."
	messageStreaming      = "WebSocket 已連線，開始串流..."
	messageStopped        = "已停止串流錄音"
	messageCancelled      = "連線中止，未開始串流"
	messageSetupFailed    = "初始化失敗：%v"
	messageSendFailed     = "傳送失敗：%v"
	messageReceiveFailed  = "接收失敗：%v"
	messageDecodeFailed   = "JSON 解析錯誤：%v"
	messageConvertFailed  = "音訊轉換失敗：%v"
	messageRecording      = "開始錄音..."
	messageRecordStopped  = "錄音結束，準備上傳..."
	messageUploading      = "上傳中..."
	messageUploadFailed   = "上傳錯誤：%v"
	messageUploadNoResult = "回傳格式解析失敗"
)
