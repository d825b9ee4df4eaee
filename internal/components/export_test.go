package components

var (
	HTTPSURL             = httpsURL
	SummarizeTestResults = summarizeTestResults
	ErrNoPackages        = errNoPackages
)
