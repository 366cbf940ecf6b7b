package insight

import "fmt"

func processInsightsPrompt(summary string) string {
	return fmt.Sprintf(`You are a process mining analyst. Based on the following
summary of a business process event log, describe the three most notable
characteristics of the process and any bottlenecks or anomalies they
suggest. Be concrete and reference the numbers given.

%s`, summary)
}

func kpiRecommendationsPrompt(summary string) string {
	return fmt.Sprintf(`You are a process improvement consultant. Based on the
following KPI summary of a business process, give three specific,
actionable recommendations to improve throughput, reduce waiting time or
lower cost. Reference the numbers given and state which KPI each
recommendation targets.

%s`, summary)
}

func questionPrompt(summary, question string) string {
	return fmt.Sprintf(`You are a process mining analyst. Answer the question below
using only the information in the process summary. If the summary does
not contain the answer, say so.

Process summary:
%s

Question: %s`, summary, question)
}
