package catalog

import "strconv"

// OutKind is the opcode of a client-to-server message.
type OutKind uint16

// InKind is the opcode of a server-to-client message.
type InKind uint16

// Outbound opcodes.
const (
	ReqMarketData              OutKind = 1
	CancelMarketData           OutKind = 2
	PlaceOrder                 OutKind = 3
	CancelOrder                OutKind = 4
	ReqOpenOrders              OutKind = 5
	ReqAccountData             OutKind = 6
	ReqExecutions              OutKind = 7
	ReqIds                     OutKind = 8
	ReqContractData            OutKind = 9
	ReqMarketDepth             OutKind = 10
	CancelMarketDepth          OutKind = 11
	ReqNewsBulletins           OutKind = 12
	CancelNewsBulletins        OutKind = 13
	SetServerLogLevel          OutKind = 14
	ReqAutoOpenOrders          OutKind = 15
	ReqAllOpenOrders           OutKind = 16
	ReqManagedAccounts         OutKind = 17
	ReqFa                      OutKind = 18
	ReplaceFa                  OutKind = 19
	ReqHistoricalData          OutKind = 20
	ExerciseOptions            OutKind = 21
	ReqScannerSubscription     OutKind = 22
	CancelScannerSubscription  OutKind = 23
	ReqScannerParameters       OutKind = 24
	CancelHistoricalData       OutKind = 25
	ReqCurrentTime             OutKind = 49
	ReqRealTimeBars            OutKind = 50
	CancelRealTimeBars         OutKind = 51
	ReqFundamentalData         OutKind = 52
	CancelFundamentalData      OutKind = 53
	ReqCalcImpliedVolat        OutKind = 54
	ReqCalcOptionPrice         OutKind = 55
	CancelCalcImpliedVolat     OutKind = 56
	CancelCalcOptionPrice      OutKind = 57
	ReqGlobalCancel            OutKind = 58
	ReqMarketDataType          OutKind = 59
	ReqPositions               OutKind = 61
	ReqAccountSummary          OutKind = 62
	CancelAccountSummary       OutKind = 63
	CancelPositions            OutKind = 64
	VerifyRequest              OutKind = 65
	VerifyMessage              OutKind = 66
	QueryDisplayGroups         OutKind = 67
	SubscribeToGroupEvents     OutKind = 68
	UpdateDisplayGroup         OutKind = 69
	UnsubscribeFromGroupEvents OutKind = 70
	StartApi                   OutKind = 71
	VerifyAndAuthRequest       OutKind = 72
	VerifyAndAuthMessage       OutKind = 73
	ReqPositionsMulti          OutKind = 74
	CancelPositionsMulti       OutKind = 75
	ReqAccountUpdatesMulti     OutKind = 76
	CancelAccountUpdatesMulti  OutKind = 77
	ReqSecDefOptParams         OutKind = 78
	ReqSoftDollarTiers         OutKind = 79
	ReqFamilyCodes             OutKind = 80
	ReqMatchingSymbols         OutKind = 81
	ReqMktDepthExchanges       OutKind = 82
	ReqSmartComponents         OutKind = 83
	ReqNewsArticle             OutKind = 84
	ReqNewsProviders           OutKind = 85
	ReqHistoricalNews          OutKind = 86
	ReqHeadTimestamp           OutKind = 87
	ReqHistogramData           OutKind = 88
	CancelHistogramData        OutKind = 89
	CancelHeadTimestamp        OutKind = 90
	ReqMarketRule              OutKind = 91
	ReqPnl                     OutKind = 92
	CancelPnl                  OutKind = 93
	ReqPnlSingle               OutKind = 94
	CancelPnlSingle            OutKind = 95
	ReqHistoricalTicks         OutKind = 96
	ReqTickByTickData          OutKind = 97
	CancelTickByTickData       OutKind = 98
	ReqCompletedOrders         OutKind = 99
)

// Inbound opcodes.
const (
	TickPrice                            InKind = 1
	TickSize                             InKind = 2
	OrderStatus                          InKind = 3
	ErrMsg                               InKind = 4
	OpenOrder                            InKind = 5
	AcctValue                            InKind = 6
	PortfolioValue                       InKind = 7
	AcctUpdateTime                       InKind = 8
	NextValidId                          InKind = 9
	ContractData                         InKind = 10
	ExecutionData                        InKind = 11
	MarketDepth                          InKind = 12
	MarketDepthL2                        InKind = 13
	NewsBulletins                        InKind = 14
	ManagedAccounts                      InKind = 15
	ReceiveFa                            InKind = 16
	HistoricalData                       InKind = 17
	BondContractData                     InKind = 18
	ScannerParameters                    InKind = 19
	ScannerData                          InKind = 20
	TickOptionComputation                InKind = 21
	TickGeneric                          InKind = 45
	TickString                           InKind = 46
	TickEfp                              InKind = 47
	CurrentTime                          InKind = 49
	RealTimeBars                         InKind = 50
	FundamentalData                      InKind = 51
	ContractDataEnd                      InKind = 52
	OpenOrderEnd                         InKind = 53
	AccountDownloadEnd                   InKind = 54
	ExecutionDataEnd                     InKind = 55
	DeltaNeutralValidation               InKind = 56
	TickSnapshotEnd                      InKind = 57
	MarketDataType                       InKind = 58
	CommissionReport                     InKind = 59
	PositionData                         InKind = 61
	PositionEnd                          InKind = 62
	AccountSummary                       InKind = 63
	AccountSummaryEnd                    InKind = 64
	VerifyMessageApi                     InKind = 65
	VerifyCompleted                      InKind = 66
	DisplayGroupList                     InKind = 67
	DisplayGroupUpdated                  InKind = 68
	VerifyAndAuthMessageApi              InKind = 69
	VerifyAndAuthCompleted               InKind = 70
	PositionMulti                        InKind = 71
	PositionMultiEnd                     InKind = 72
	AccountUpdateMulti                   InKind = 73
	AccountUpdateMultiEnd                InKind = 74
	SecurityDefinitionOptionParameter    InKind = 75
	SecurityDefinitionOptionParameterEnd InKind = 76
	SoftDollarTiers                      InKind = 77
	FamilyCodes                          InKind = 78
	SymbolSamples                        InKind = 79
	MktDepthExchanges                    InKind = 80
	TickReqParams                        InKind = 81
	SmartComponents                      InKind = 82
	NewsArticle                          InKind = 83
	TickNews                             InKind = 84
	NewsProviders                        InKind = 85
	HistoricalNews                       InKind = 86
	HistoricalNewsEnd                    InKind = 87
	HeadTimestamp                        InKind = 88
	HistogramData                        InKind = 89
	HistoricalDataUpdate                 InKind = 90
	RerouteMktDataReq                    InKind = 91
	RerouteMktDepthReq                   InKind = 92
	MarketRule                           InKind = 93
	Pnl                                  InKind = 94
	PnlSingle                            InKind = 95
	HistoricalTicks                      InKind = 96
	HistoricalTicksBidAsk                InKind = 97
	HistoricalTicksLast                  InKind = 98
	TickByTick                           InKind = 99
	OrderBound                           InKind = 100
	CompletedOrder                       InKind = 101
	CompletedOrdersEnd                   InKind = 102
	ReplaceFaEnd                         InKind = 103
)

func (k OutKind) String() string {
	if e, ok := Default().Out(k); ok {
		return e.Name
	}
	return "OutKind(" + strconv.Itoa(int(k)) + ")"
}

func (k InKind) String() string {
	if e, ok := Default().In(k); ok {
		return e.Name
	}
	return "InKind(" + strconv.Itoa(int(k)) + ")"
}
