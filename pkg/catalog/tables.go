package catalog

import "github.com/chronologos/ibgw/pkg/protocol"

func i(name string) FieldSpec { return FieldSpec{Name: name, Kind: protocol.KindInt} }
func f(name string) FieldSpec { return FieldSpec{Name: name, Kind: protocol.KindFloat} }
func s(name string) FieldSpec { return FieldSpec{Name: name, Kind: protocol.KindString} }

func since(v int, spec FieldSpec) FieldSpec {
	spec.Since = v
	return spec
}

func group(name string, rows ...FieldSpec) FieldSpec {
	return FieldSpec{Name: name, Group: rows}
}

func join(parts ...[]FieldSpec) []FieldSpec {
	var out []FieldSpec
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func fields(specs ...FieldSpec) []FieldSpec { return specs }

// Server versions at which layouts gained fields.
const (
	VerOptionalCapabilities = 72
	VerPnlRealized          = 127
	VerTickByTickIgnoreSize = 140
	VerNewsArticleOptions   = 144
	VerTickAttrib           = 145
	VerSmartDepth           = 146
	VerAdvancedReject       = 166
	VerManualCancelTime     = 169
	VerBondIssuerID         = 176
)

var contract = fields(
	i("conId"), s("symbol"), s("secType"), s("lastTradeDate"), f("strike"),
	s("right"), s("multiplier"), s("exchange"), s("primaryExchange"),
	s("currency"), s("localSymbol"), s("tradingClass"),
)

var reqID = fields(i("reqId"))

var marketData = []InKind{
	TickPrice, TickSize, TickGeneric, TickString, TickEfp,
	TickOptionComputation, TickReqParams, TickNews, MarketDataType,
	RerouteMktDataReq,
}

func outboundTable() []Outbound {
	return []Outbound{
		{Kind: ReqMarketData, Name: "ReqMarketData", Version: 11, ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("deltaNeutral"), s("genericTickList"), i("snapshot"),
				i("regulatorySnapshot"), s("mktDataOptions"))),
			Responses: marketData, End: TickSnapshotEnd, Cancel: CancelMarketData, Policy: DropOldest},
		{Kind: CancelMarketData, Name: "CancelMarketData", Version: 2, ReqID: "reqId", Fields: reqID},
		{Kind: PlaceOrder, Name: "PlaceOrder", ReqID: "orderId", Tail: true,
			Fields: join(fields(i("orderId")), contract, fields(
				s("secIdType"), s("secId"), s("action"), f("totalQuantity"),
				s("orderType"), f("lmtPrice"), f("auxPrice"), s("tif"),
				s("ocaGroup"), s("account"), s("openClose"), i("origin"),
				s("orderRef"), i("transmit"), i("parentId"))),
			Responses: []InKind{OpenOrder, OrderStatus, OrderBound}, Cancel: CancelOrder},
		{Kind: CancelOrder, Name: "CancelOrder", Version: 1, ReqID: "orderId",
			Fields: fields(i("orderId"), since(VerManualCancelTime, s("manualOrderCancelTime")))},
		{Kind: ReqOpenOrders, Name: "ReqOpenOrders", Version: 1,
			Responses: []InKind{OpenOrder, OrderStatus}, End: OpenOrderEnd},
		{Kind: ReqAccountData, Name: "ReqAccountData", Version: 2,
			Fields:    fields(i("subscribe"), s("acctCode")),
			Responses: []InKind{AcctValue, PortfolioValue, AcctUpdateTime}, End: AccountDownloadEnd},
		{Kind: ReqExecutions, Name: "ReqExecutions", Version: 3, ReqID: "reqId",
			Fields: join(reqID, fields(
				i("clientId"), s("acctCode"), s("time"), s("symbol"),
				s("secType"), s("exchange"), s("side"))),
			Responses: []InKind{ExecutionData}, End: ExecutionDataEnd},
		{Kind: ReqIds, Name: "ReqIds", Version: 1, Fields: fields(i("numIds")),
			Responses: []InKind{NextValidId}, End: NextValidId},
		{Kind: ReqContractData, Name: "ReqContractData", Version: 8, ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("includeExpired"), s("secIdType"), s("secId"),
				since(VerBondIssuerID, s("issuerId")))),
			Responses: []InKind{ContractData, BondContractData}, End: ContractDataEnd},
		{Kind: ReqMarketDepth, Name: "ReqMarketDepth", Version: 5, ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("numRows"), since(VerSmartDepth, i("isSmartDepth")), s("mktDepthOptions"))),
			Responses: []InKind{MarketDepth, MarketDepthL2, RerouteMktDepthReq},
			Cancel:    CancelMarketDepth, Policy: DropOldest},
		{Kind: CancelMarketDepth, Name: "CancelMarketDepth", Version: 1, ReqID: "reqId",
			Fields: join(reqID, fields(since(VerSmartDepth, i("isSmartDepth"))))},
		{Kind: ReqNewsBulletins, Name: "ReqNewsBulletins", Version: 1, Fields: fields(i("allMsgs")),
			Responses: []InKind{NewsBulletins}, Cancel: CancelNewsBulletins},
		{Kind: CancelNewsBulletins, Name: "CancelNewsBulletins", Version: 1},
		{Kind: SetServerLogLevel, Name: "SetServerLogLevel", Version: 1, Fields: fields(i("logLevel"))},
		{Kind: ReqAutoOpenOrders, Name: "ReqAutoOpenOrders", Version: 1, Fields: fields(i("autoBind"))},
		{Kind: ReqAllOpenOrders, Name: "ReqAllOpenOrders", Version: 1,
			Responses: []InKind{OpenOrder, OrderStatus}, End: OpenOrderEnd},
		{Kind: ReqManagedAccounts, Name: "ReqManagedAccounts", Version: 1,
			Responses: []InKind{ManagedAccounts}, End: ManagedAccounts},
		{Kind: ReqFa, Name: "ReqFa", Version: 1, Fields: fields(i("faDataType")),
			Responses: []InKind{ReceiveFa}, End: ReceiveFa},
		{Kind: ReplaceFa, Name: "ReplaceFa", Version: 1, ReqID: "reqId",
			Fields: fields(i("faDataType"), s("xml"), i("reqId")), End: ReplaceFaEnd},
		{Kind: ReqHistoricalData, Name: "ReqHistoricalData", ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("includeExpired"), s("endDateTime"), s("barSizeSetting"),
				s("durationStr"), i("useRTH"), s("whatToShow"), i("formatDate"),
				i("keepUpToDate"), s("chartOptions"))),
			Responses: []InKind{HistoricalData, HistoricalDataUpdate}, End: HistoricalData,
			Cancel: CancelHistoricalData},
		{Kind: ExerciseOptions, Name: "ExerciseOptions", Version: 2, ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("exerciseAction"), i("exerciseQuantity"), s("account"), i("override")))},
		{Kind: ReqScannerSubscription, Name: "ReqScannerSubscription", ReqID: "reqId",
			Fields: join(reqID, fields(
				i("numberOfRows"), s("instrument"), s("locationCode"), s("scanCode"),
				f("abovePrice"), f("belowPrice"), i("aboveVolume"),
				f("marketCapAbove"), f("marketCapBelow"),
				s("moodyRatingAbove"), s("moodyRatingBelow"),
				s("spRatingAbove"), s("spRatingBelow"),
				s("maturityDateAbove"), s("maturityDateBelow"),
				f("couponRateAbove"), f("couponRateBelow"), i("excludeConvertible"),
				i("averageOptionVolumeAbove"), s("scannerSettingPairs"), s("stockTypeFilter"),
				group("filterOptions", s("tag"), s("value")),
				s("subscriptionOptions"))),
			Responses: []InKind{ScannerData}, Cancel: CancelScannerSubscription},
		{Kind: CancelScannerSubscription, Name: "CancelScannerSubscription", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: ReqScannerParameters, Name: "ReqScannerParameters", Version: 1,
			Responses: []InKind{ScannerParameters}, End: ScannerParameters},
		{Kind: CancelHistoricalData, Name: "CancelHistoricalData", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: ReqCurrentTime, Name: "ReqCurrentTime", Version: 1,
			Responses: []InKind{CurrentTime}, End: CurrentTime},
		{Kind: ReqRealTimeBars, Name: "ReqRealTimeBars", Version: 3, ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("barSize"), s("whatToShow"), i("useRTH"), s("realTimeBarsOptions"))),
			Responses: []InKind{RealTimeBars}, Cancel: CancelRealTimeBars, Policy: DropOldest},
		{Kind: CancelRealTimeBars, Name: "CancelRealTimeBars", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: ReqFundamentalData, Name: "ReqFundamentalData", Version: 2, ReqID: "reqId",
			Fields: join(reqID, fields(
				i("conId"), s("symbol"), s("secType"), s("exchange"), s("primaryExchange"),
				s("currency"), s("localSymbol"), s("reportType"), s("fundamentalDataOptions"))),
			End: FundamentalData, Cancel: CancelFundamentalData},
		{Kind: CancelFundamentalData, Name: "CancelFundamentalData", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: ReqCalcImpliedVolat, Name: "ReqCalcImpliedVolat", Version: 3, ReqID: "reqId",
			Fields:    join(reqID, contract, fields(f("optionPrice"), f("underPrice"), s("implVolOptions"))),
			Responses: []InKind{TickOptionComputation}, Cancel: CancelCalcImpliedVolat},
		{Kind: ReqCalcOptionPrice, Name: "ReqCalcOptionPrice", Version: 3, ReqID: "reqId",
			Fields:    join(reqID, contract, fields(f("volatility"), f("underPrice"), s("optPrcOptions"))),
			Responses: []InKind{TickOptionComputation}, Cancel: CancelCalcOptionPrice},
		{Kind: CancelCalcImpliedVolat, Name: "CancelCalcImpliedVolat", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: CancelCalcOptionPrice, Name: "CancelCalcOptionPrice", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: ReqGlobalCancel, Name: "ReqGlobalCancel", Version: 1},
		{Kind: ReqMarketDataType, Name: "ReqMarketDataType", Version: 1, Fields: fields(i("marketDataType"))},
		{Kind: ReqPositions, Name: "ReqPositions", Version: 1,
			Responses: []InKind{PositionData}, End: PositionEnd, Cancel: CancelPositions},
		{Kind: ReqAccountSummary, Name: "ReqAccountSummary", Version: 1, ReqID: "reqId",
			Fields:    join(reqID, fields(s("group"), s("tags"))),
			Responses: []InKind{AccountSummary}, End: AccountSummaryEnd, Cancel: CancelAccountSummary},
		{Kind: CancelAccountSummary, Name: "CancelAccountSummary", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: CancelPositions, Name: "CancelPositions", Version: 1},
		{Kind: VerifyRequest, Name: "VerifyRequest", Version: 1,
			Fields:    fields(s("apiName"), s("apiVersion")),
			Responses: []InKind{VerifyMessageApi}, End: VerifyCompleted},
		{Kind: VerifyMessage, Name: "VerifyMessage", Version: 1, Fields: fields(s("apiData"))},
		{Kind: QueryDisplayGroups, Name: "QueryDisplayGroups", Version: 1, ReqID: "reqId", Fields: reqID,
			End: DisplayGroupList},
		{Kind: SubscribeToGroupEvents, Name: "SubscribeToGroupEvents", Version: 1, ReqID: "reqId",
			Fields:    join(reqID, fields(i("groupId"))),
			Responses: []InKind{DisplayGroupUpdated}, Cancel: UnsubscribeFromGroupEvents},
		{Kind: UpdateDisplayGroup, Name: "UpdateDisplayGroup", Version: 1, ReqID: "reqId",
			Fields: join(reqID, fields(s("contractInfo")))},
		{Kind: UnsubscribeFromGroupEvents, Name: "UnsubscribeFromGroupEvents", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: StartApi, Name: "StartApi", Version: 2,
			Fields: fields(i("clientId"), since(VerOptionalCapabilities, s("optionalCapabilities")))},
		{Kind: VerifyAndAuthRequest, Name: "VerifyAndAuthRequest", Version: 1,
			Fields:    fields(s("apiName"), s("apiVersion"), s("opaqueIsvKey")),
			Responses: []InKind{VerifyAndAuthMessageApi}, End: VerifyAndAuthCompleted},
		{Kind: VerifyAndAuthMessage, Name: "VerifyAndAuthMessage", Version: 1,
			Fields: fields(s("apiData"), s("xyzResponse"))},
		{Kind: ReqPositionsMulti, Name: "ReqPositionsMulti", Version: 1, ReqID: "reqId",
			Fields:    join(reqID, fields(s("account"), s("modelCode"))),
			Responses: []InKind{PositionMulti}, End: PositionMultiEnd, Cancel: CancelPositionsMulti},
		{Kind: CancelPositionsMulti, Name: "CancelPositionsMulti", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: ReqAccountUpdatesMulti, Name: "ReqAccountUpdatesMulti", Version: 1, ReqID: "reqId",
			Fields:    join(reqID, fields(s("account"), s("modelCode"), i("ledgerAndNLV"))),
			Responses: []InKind{AccountUpdateMulti}, End: AccountUpdateMultiEnd, Cancel: CancelAccountUpdatesMulti},
		{Kind: CancelAccountUpdatesMulti, Name: "CancelAccountUpdatesMulti", Version: 1, ReqID: "reqId", Fields: reqID},
		{Kind: ReqSecDefOptParams, Name: "ReqSecDefOptParams", ReqID: "reqId",
			Fields: join(reqID, fields(
				s("underlyingSymbol"), s("futFopExchange"), s("underlyingSecType"), i("underlyingConId"))),
			Responses: []InKind{SecurityDefinitionOptionParameter}, End: SecurityDefinitionOptionParameterEnd},
		{Kind: ReqSoftDollarTiers, Name: "ReqSoftDollarTiers", ReqID: "reqId", Fields: reqID, End: SoftDollarTiers},
		{Kind: ReqFamilyCodes, Name: "ReqFamilyCodes", End: FamilyCodes},
		{Kind: ReqMatchingSymbols, Name: "ReqMatchingSymbols", ReqID: "reqId",
			Fields: join(reqID, fields(s("pattern"))), End: SymbolSamples},
		{Kind: ReqMktDepthExchanges, Name: "ReqMktDepthExchanges", End: MktDepthExchanges},
		{Kind: ReqSmartComponents, Name: "ReqSmartComponents", ReqID: "reqId",
			Fields: join(reqID, fields(s("bboExchange"))), End: SmartComponents},
		{Kind: ReqNewsArticle, Name: "ReqNewsArticle", ReqID: "reqId",
			Fields: join(reqID, fields(
				s("providerCode"), s("articleId"), since(VerNewsArticleOptions, s("newsArticleOptions")))),
			End: NewsArticle},
		{Kind: ReqNewsProviders, Name: "ReqNewsProviders", End: NewsProviders},
		{Kind: ReqHistoricalNews, Name: "ReqHistoricalNews", ReqID: "reqId",
			Fields: join(reqID, fields(
				i("conId"), s("providerCodes"), s("startDateTime"), s("endDateTime"),
				i("totalResults"), s("historicalNewsOptions"))),
			Responses: []InKind{HistoricalNews}, End: HistoricalNewsEnd},
		{Kind: ReqHeadTimestamp, Name: "ReqHeadTimestamp", ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("includeExpired"), i("useRTH"), s("whatToShow"), i("formatDate"))),
			End: HeadTimestamp, Cancel: CancelHeadTimestamp},
		{Kind: ReqHistogramData, Name: "ReqHistogramData", ReqID: "reqId",
			Fields: join(reqID, contract, fields(i("includeExpired"), i("useRTH"), s("timePeriod"))),
			End:    HistogramData, Cancel: CancelHistogramData},
		{Kind: CancelHistogramData, Name: "CancelHistogramData", ReqID: "reqId", Fields: reqID},
		{Kind: CancelHeadTimestamp, Name: "CancelHeadTimestamp", ReqID: "reqId", Fields: reqID},
		{Kind: ReqMarketRule, Name: "ReqMarketRule", Fields: fields(i("marketRuleId")), End: MarketRule},
		{Kind: ReqPnl, Name: "ReqPnl", ReqID: "reqId",
			Fields:    join(reqID, fields(s("account"), s("modelCode"))),
			Responses: []InKind{Pnl}, Cancel: CancelPnl, Policy: DropOldest},
		{Kind: CancelPnl, Name: "CancelPnl", ReqID: "reqId", Fields: reqID},
		{Kind: ReqPnlSingle, Name: "ReqPnlSingle", ReqID: "reqId",
			Fields:    join(reqID, fields(s("account"), s("modelCode"), i("conId"))),
			Responses: []InKind{PnlSingle}, Cancel: CancelPnlSingle, Policy: DropOldest},
		{Kind: CancelPnlSingle, Name: "CancelPnlSingle", ReqID: "reqId", Fields: reqID},
		{Kind: ReqHistoricalTicks, Name: "ReqHistoricalTicks", ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				i("includeExpired"), s("startDateTime"), s("endDateTime"), i("numberOfTicks"),
				s("whatToShow"), i("useRth"), i("ignoreSize"), s("miscOptions"))),
			Responses: []InKind{HistoricalTicks, HistoricalTicksBidAsk, HistoricalTicksLast}},
		{Kind: ReqTickByTickData, Name: "ReqTickByTickData", ReqID: "reqId",
			Fields: join(reqID, contract, fields(
				s("tickType"), since(VerTickByTickIgnoreSize, i("numberOfTicks")),
				since(VerTickByTickIgnoreSize, i("ignoreSize")))),
			Responses: []InKind{TickByTick}, Cancel: CancelTickByTickData, Policy: DropOldest},
		{Kind: CancelTickByTickData, Name: "CancelTickByTickData", ReqID: "reqId", Fields: reqID},
		{Kind: ReqCompletedOrders, Name: "ReqCompletedOrders", Fields: fields(i("apiOnly")),
			Responses: []InKind{CompletedOrder}, End: CompletedOrdersEnd},
	}
}

func inboundTable() []Inbound {
	return []Inbound{
		{Kind: TickPrice, Name: "TickPrice", ReqID: "tickerId",
			Fields: fields(i("tickerId"), i("tickType"), f("price"), i("size"), i("attrMask"))},
		{Kind: TickSize, Name: "TickSize", ReqID: "tickerId",
			Fields: fields(i("tickerId"), i("tickType"), i("size"))},
		{Kind: OrderStatus, Name: "OrderStatus", ReqID: "orderId",
			Fields: fields(
				i("orderId"), s("status"), f("filled"), f("remaining"), f("avgFillPrice"),
				i("permId"), i("parentId"), f("lastFillPrice"), i("clientId"), s("whyHeld"),
				f("mktCapPrice"))},
		{Kind: ErrMsg, Name: "ErrMsg", Versioned: true, ReqID: "id",
			Fields: fields(i("id"), i("code"), s("message"), since(VerAdvancedReject, s("advancedOrderRejectJson")))},
		{Kind: OpenOrder, Name: "OpenOrder", ReqID: "orderId",
			Fields: join(fields(i("orderId")), contract, fields(
				s("action"), f("totalQuantity"), s("orderType"), f("lmtPrice"), f("auxPrice")))},
		{Kind: AcctValue, Name: "AcctValue", Versioned: true,
			Fields: fields(s("key"), s("value"), s("currency"), s("accountName"))},
		{Kind: PortfolioValue, Name: "PortfolioValue", Versioned: true,
			Fields: join(contract, fields(
				f("position"), f("marketPrice"), f("marketValue"), f("averageCost"),
				f("unrealizedPNL"), f("realizedPNL"), s("accountName")))},
		{Kind: AcctUpdateTime, Name: "AcctUpdateTime", Versioned: true, Fields: fields(s("timeStamp"))},
		{Kind: NextValidId, Name: "NextValidId", Versioned: true, Fields: fields(i("orderId"))},
		{Kind: ContractData, Name: "ContractData", Versioned: true, ReqID: "reqId",
			Fields: fields(
				i("reqId"), s("symbol"), s("secType"), s("lastTradeDate"), f("strike"), s("right"),
				s("exchange"), s("currency"), s("localSymbol"), s("marketName"), s("tradingClass"),
				i("conId"), f("minTick"), s("multiplier"), s("orderTypes"), s("validExchanges"),
				i("priceMagnifier"), i("underConId"), s("longName"), s("primaryExchange"))},
		{Kind: ExecutionData, Name: "ExecutionData", ReqID: "reqId",
			Fields: join(fields(i("reqId"), i("orderId")), contract, fields(
				s("execId"), s("time"), s("acctNumber"), s("execExchange"), s("side"),
				f("shares"), f("price"), i("permId"), i("clientId"), i("liquidation"),
				f("cumQty"), f("avgPrice"), s("orderRef"), s("evRule"), f("evMultiplier"),
				s("modelCode"), i("lastLiquidity")))},
		{Kind: MarketDepth, Name: "MarketDepth", Versioned: true, ReqID: "id",
			Fields: fields(i("id"), i("position"), i("operation"), i("side"), f("price"), i("size"))},
		{Kind: MarketDepthL2, Name: "MarketDepthL2", Versioned: true, ReqID: "id",
			Fields: fields(
				i("id"), i("position"), s("marketMaker"), i("operation"), i("side"),
				f("price"), i("size"), since(VerSmartDepth, i("isSmartDepth")))},
		{Kind: NewsBulletins, Name: "NewsBulletins", Versioned: true,
			Fields: fields(i("newsMsgId"), i("newsMsgType"), s("newsMessage"), s("originatingExch"))},
		{Kind: ManagedAccounts, Name: "ManagedAccounts", Versioned: true, Fields: fields(s("accountsList"))},
		{Kind: ReceiveFa, Name: "ReceiveFa", Versioned: true, Fields: fields(i("faDataType"), s("xml"))},
		{Kind: HistoricalData, Name: "HistoricalData", ReqID: "reqId",
			Fields: fields(i("reqId"), s("startDate"), s("endDate"),
				group("bars", s("date"), f("open"), f("high"), f("low"), f("close"),
					i("volume"), f("wap"), i("barCount")))},
		{Kind: BondContractData, Name: "BondContractData", Versioned: true, ReqID: "reqId", Fields: reqID},
		{Kind: ScannerParameters, Name: "ScannerParameters", Versioned: true, Fields: fields(s("xml"))},
		{Kind: ScannerData, Name: "ScannerData", Versioned: true, ReqID: "tickerId",
			Fields: fields(i("tickerId"),
				group("rows", i("rank"), i("conId"), s("symbol"), s("secType"), s("lastTradeDate"),
					f("strike"), s("right"), s("exchange"), s("currency"), s("localSymbol"),
					s("marketName"), s("tradingClass"), s("distance"), s("benchmark"),
					s("projection"), s("legsStr")))},
		{Kind: TickOptionComputation, Name: "TickOptionComputation", ReqID: "tickerId",
			Fields: fields(i("tickerId"), i("tickType"), since(VerTickAttrib, i("tickAttrib")),
				f("impliedVol"), f("delta"), f("optPrice"), f("pvDividend"),
				f("gamma"), f("vega"), f("theta"), f("undPrice"))},
		{Kind: TickGeneric, Name: "TickGeneric", Versioned: true, ReqID: "tickerId",
			Fields: fields(i("tickerId"), i("tickType"), f("value"))},
		{Kind: TickString, Name: "TickString", Versioned: true, ReqID: "tickerId",
			Fields: fields(i("tickerId"), i("tickType"), s("value"))},
		{Kind: TickEfp, Name: "TickEfp", Versioned: true, ReqID: "tickerId",
			Fields: fields(i("tickerId"), i("tickType"), f("basisPoints"), s("formattedBasisPoints"),
				f("impliedFuturesPrice"), i("holdDays"), s("futureLastTradeDate"),
				f("dividendImpact"), f("dividendsToLastTradeDate"))},
		{Kind: CurrentTime, Name: "CurrentTime", Versioned: true, Fields: fields(i("time"))},
		{Kind: RealTimeBars, Name: "RealTimeBars", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), i("time"), f("open"), f("high"), f("low"), f("close"),
				i("volume"), f("wap"), i("count"))},
		{Kind: FundamentalData, Name: "FundamentalData", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), s("data"))},
		{Kind: ContractDataEnd, Name: "ContractDataEnd", Versioned: true, ReqID: "reqId", Fields: reqID},
		{Kind: OpenOrderEnd, Name: "OpenOrderEnd", Versioned: true},
		{Kind: AccountDownloadEnd, Name: "AccountDownloadEnd", Versioned: true, Fields: fields(s("accountName"))},
		{Kind: ExecutionDataEnd, Name: "ExecutionDataEnd", Versioned: true, ReqID: "reqId", Fields: reqID},
		{Kind: DeltaNeutralValidation, Name: "DeltaNeutralValidation", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), i("conId"), f("delta"), f("price"))},
		{Kind: TickSnapshotEnd, Name: "TickSnapshotEnd", Versioned: true, ReqID: "reqId", Fields: reqID},
		{Kind: MarketDataType, Name: "MarketDataType", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), i("marketDataType"))},
		{Kind: CommissionReport, Name: "CommissionReport", Versioned: true,
			Fields: fields(s("execId"), f("commission"), s("currency"), f("realizedPNL"),
				f("yield"), i("yieldRedemptionDate"))},
		{Kind: PositionData, Name: "PositionData", Versioned: true,
			Fields: join(fields(s("account")), contract, fields(f("position"), f("avgCost")))},
		{Kind: PositionEnd, Name: "PositionEnd", Versioned: true},
		{Kind: AccountSummary, Name: "AccountSummary", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), s("account"), s("tag"), s("value"), s("currency"))},
		{Kind: AccountSummaryEnd, Name: "AccountSummaryEnd", Versioned: true, ReqID: "reqId", Fields: reqID},
		{Kind: VerifyMessageApi, Name: "VerifyMessageApi", Versioned: true, Fields: fields(s("apiData"))},
		{Kind: VerifyCompleted, Name: "VerifyCompleted", Versioned: true,
			Fields: fields(s("isSuccessful"), s("errorText"))},
		{Kind: DisplayGroupList, Name: "DisplayGroupList", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), s("groups"))},
		{Kind: DisplayGroupUpdated, Name: "DisplayGroupUpdated", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), s("contractInfo"))},
		{Kind: VerifyAndAuthMessageApi, Name: "VerifyAndAuthMessageApi", Versioned: true,
			Fields: fields(s("apiData"), s("xyzChallenge"))},
		{Kind: VerifyAndAuthCompleted, Name: "VerifyAndAuthCompleted", Versioned: true,
			Fields: fields(s("isSuccessful"), s("errorText"))},
		{Kind: PositionMulti, Name: "PositionMulti", Versioned: true, ReqID: "reqId",
			Fields: join(fields(i("reqId"), s("account")), contract,
				fields(f("position"), f("avgCost"), s("modelCode")))},
		{Kind: PositionMultiEnd, Name: "PositionMultiEnd", Versioned: true, ReqID: "reqId", Fields: reqID},
		{Kind: AccountUpdateMulti, Name: "AccountUpdateMulti", Versioned: true, ReqID: "reqId",
			Fields: fields(i("reqId"), s("account"), s("modelCode"), s("key"), s("value"), s("currency"))},
		{Kind: AccountUpdateMultiEnd, Name: "AccountUpdateMultiEnd", Versioned: true, ReqID: "reqId", Fields: reqID},
		{Kind: SecurityDefinitionOptionParameter, Name: "SecurityDefinitionOptionParameter", ReqID: "reqId",
			Fields: fields(i("reqId"), s("exchange"), i("underlyingConId"), s("tradingClass"), s("multiplier"),
				group("expirations", s("expiration")), group("strikes", f("strike")))},
		{Kind: SecurityDefinitionOptionParameterEnd, Name: "SecurityDefinitionOptionParameterEnd", ReqID: "reqId", Fields: reqID},
		{Kind: SoftDollarTiers, Name: "SoftDollarTiers", ReqID: "reqId",
			Fields: fields(i("reqId"), group("tiers", s("name"), s("value"), s("displayName")))},
		{Kind: FamilyCodes, Name: "FamilyCodes",
			Fields: fields(group("codes", s("accountID"), s("familyCode")))},
		{Kind: SymbolSamples, Name: "SymbolSamples", ReqID: "reqId",
			Fields: fields(i("reqId"), group("contracts",
				i("conId"), s("symbol"), s("secType"), s("primaryExchange"), s("currency"),
				group("derivativeSecTypes", s("secType"))))},
		{Kind: MktDepthExchanges, Name: "MktDepthExchanges",
			Fields: fields(group("exchanges", s("exchange"), s("secType"), s("listingExch"),
				s("serviceDataType"), i("aggGroup")))},
		{Kind: TickReqParams, Name: "TickReqParams", ReqID: "tickerId",
			Fields: fields(i("tickerId"), f("minTick"), s("bboExchange"), i("snapshotPermissions"))},
		{Kind: SmartComponents, Name: "SmartComponents", ReqID: "reqId",
			Fields: fields(i("reqId"), group("components", i("bitNumber"), s("exchange"), s("exchangeLetter")))},
		{Kind: NewsArticle, Name: "NewsArticle", ReqID: "reqId",
			Fields: fields(i("reqId"), i("articleType"), s("articleText"))},
		{Kind: TickNews, Name: "TickNews", ReqID: "tickerId",
			Fields: fields(i("tickerId"), i("timeStamp"), s("providerCode"), s("articleId"),
				s("headline"), s("extraData"))},
		{Kind: NewsProviders, Name: "NewsProviders",
			Fields: fields(group("providers", s("code"), s("name")))},
		{Kind: HistoricalNews, Name: "HistoricalNews", ReqID: "reqId",
			Fields: fields(i("reqId"), s("time"), s("providerCode"), s("articleId"), s("headline"))},
		{Kind: HistoricalNewsEnd, Name: "HistoricalNewsEnd", ReqID: "reqId",
			Fields: fields(i("reqId"), i("hasMore"))},
		{Kind: HeadTimestamp, Name: "HeadTimestamp", ReqID: "reqId",
			Fields: fields(i("reqId"), s("headTimestamp"))},
		{Kind: HistogramData, Name: "HistogramData", ReqID: "reqId",
			Fields: fields(i("reqId"), group("items", f("price"), i("size")))},
		{Kind: HistoricalDataUpdate, Name: "HistoricalDataUpdate", ReqID: "reqId",
			Fields: fields(i("reqId"), i("barCount"), s("date"), f("open"), f("close"),
				f("high"), f("low"), f("wap"), i("volume"))},
		{Kind: RerouteMktDataReq, Name: "RerouteMktDataReq", ReqID: "reqId",
			Fields: fields(i("reqId"), i("conId"), s("exchange"))},
		{Kind: RerouteMktDepthReq, Name: "RerouteMktDepthReq", ReqID: "reqId",
			Fields: fields(i("reqId"), i("conId"), s("exchange"))},
		{Kind: MarketRule, Name: "MarketRule",
			Fields: fields(i("marketRuleId"), group("increments", f("lowEdge"), f("increment")))},
		{Kind: Pnl, Name: "Pnl", ReqID: "reqId",
			Fields: fields(i("reqId"), f("dailyPnL"),
				since(VerPnlRealized, f("unrealizedPnL")), since(VerPnlRealized, f("realizedPnL")))},
		{Kind: PnlSingle, Name: "PnlSingle", ReqID: "reqId",
			Fields: fields(i("reqId"), i("pos"), f("dailyPnL"),
				since(VerPnlRealized, f("unrealizedPnL")), since(VerPnlRealized, f("realizedPnL")),
				f("value"))},
		{Kind: HistoricalTicks, Name: "HistoricalTicks", ReqID: "reqId", Final: "done",
			Fields: fields(i("reqId"), group("ticks", i("time"), i("unused"), f("price"), i("size")), i("done"))},
		{Kind: HistoricalTicksBidAsk, Name: "HistoricalTicksBidAsk", ReqID: "reqId", Final: "done",
			Fields: fields(i("reqId"), group("ticks", i("time"), i("mask"), f("priceBid"), f("priceAsk"),
				i("sizeBid"), i("sizeAsk")), i("done"))},
		{Kind: HistoricalTicksLast, Name: "HistoricalTicksLast", ReqID: "reqId", Final: "done",
			Fields: fields(i("reqId"), group("ticks", i("time"), i("mask"), f("price"), i("size"),
				s("exchange"), s("specialConditions")), i("done"))},
		{Kind: TickByTick, Name: "TickByTick", ReqID: "reqId",
			Fields: fields(i("reqId"), i("tickType"), i("time"))},
		{Kind: OrderBound, Name: "OrderBound", ReqID: "apiOrderId",
			Fields: fields(i("orderId"), i("apiClientId"), i("apiOrderId"))},
		{Kind: CompletedOrder, Name: "CompletedOrder",
			Fields: join(contract, fields(s("action"), f("totalQuantity"), s("orderType")))},
		{Kind: CompletedOrdersEnd, Name: "CompletedOrdersEnd"},
		{Kind: ReplaceFaEnd, Name: "ReplaceFaEnd", ReqID: "reqId", Fields: fields(i("reqId"), s("text"))},
	}
}
