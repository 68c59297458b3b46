package llm

const hypothesisPrompt = `You are an opportunity research system. For the subject entity %q, propose candidate hypotheses about business opportunities worth investigating.

Each hypothesis must be a clear, falsifiable claim, e.g. "the entity needs workflow automation for its intake process", never "something could be improved".

Categories (use others if clearly warranted): automation, integration, analytics, migration, security, expansion.

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"category":"automation","claim":"entity needs automated invoice processing","initial_confidence":0.35}]

initial_confidence is your prior in [0,1]; use values below 0.5 unless you already hold strong evidence.
%s`

const hypothesisPriorSection = `
Hypotheses already under investigation (do not repeat them):
%s`

const decisionPrompt = `You are an investigation judge. Given the hypothesis and the evidence gathered this pass, classify the outcome.

Hypothesis (category %q): %s

Evidence:
%s

Respond ONLY with a JSON object, no markdown:
{"decision":"...","rationale":"one sentence"}

decision must be exactly one of: ACCEPT, WEAK_ACCEPT, REJECT, NO_PROGRESS, SATURATED.
- ACCEPT: the evidence clearly supports the claim
- WEAK_ACCEPT: the evidence is suggestive but thin
- REJECT: the evidence contradicts the claim
- NO_PROGRESS: the evidence is unrelated or empty
- SATURATED: this line of investigation is worked out`
