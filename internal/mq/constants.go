package mq

const (
	MqChannelName_Notify         = "Notify"
	MqChannelName_MessagesIn     = "MessagesIn"
	MqChannelName_MessagesOut    = "MessagesOut"
	NotifyMsg_NodeConnected      = "NodeConnected"
	NotifyMsg_NodeDisconnected   = "NodeDisconnected"
	NotifyMsg_ClientConnected    = "ClientConnected"
	NotifyMsg_ClientDisconnected = "ClientDisconnected"

	MqType_Mangos = "mangos_mq"
	MqType_Rabbit = "rabbit_mq"
	MqType_Redis  = "redis_mq"
)

const (
	MqChannel_SendMaxRetries  = 3
	MqChannel_SendRetryWaitMs = 2000
)
