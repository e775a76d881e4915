package neurogc

import "github.com/tliron/commonlog"

var (
	log          = commonlog.GetLogger("neurogc")
	collectorLog = commonlog.GetLogger("neurogc.collector")
	tableLog     = commonlog.GetLogger("neurogc.table")
	segmentLog   = commonlog.GetLogger("neurogc.segment")
)
