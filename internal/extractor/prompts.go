package extractor

// Placeholders substituted when a prompt is rendered.
const (
	transcriptPlaceholder = "{transcript}"
	previousPlaceholder   = "{previous}"
)

const goalExtractionPrompt = `# Extract Quantifiable Goals from Mastermind Breakout

**Task:** For every participant, record what they discussed, what they
committed to for next week, and whether that commitment is measurable.

**Output Format:**
### [Participant Name]
**What They Discussed:** [2-3 sentences]
**Their Commitment for Next Week:** [Exact words OR "No specific commitment made"]
**Classification:** [✅ Quantifiable / ❌ Not Quantifiable / ⚪ No Goal / 🤔 Decision Pending]
**Why This Classification:** [One sentence]
**Exact Quote:** "[Direct quote]" OR "N/A"
**Timestamp:** (XXm XXs) OR "N/A"
**How to Make It Quantifiable:** [Suggestion] OR "N/A"
**Personalized Accountability Nudge Message:**
> [Only for Not Quantifiable or No Goal. Friendly, max 150 words, offer 2-3 specific numeric goals]
---

**Rules:**
- Include every speaker who shared an update
- Quantifiable means a number, deadline or clear completion point
- When in doubt, classify as Not Quantifiable
- Use exact quotes, never paraphrase quotes

Transcript:
{transcript}
`

const extractCommitmentsPrompt = `# Extract Commitments from Mastermind Call

**Task:** Find what each participant commits to doing next week.

**Output Format:**
### [Participant Name]
**What They Discussed:** [2-3 sentences]
**Commitment:** [Exact quote OR "No specific commitment made"]
**Quote:** "[Direct quote]" OR "N/A"
**Timestamp:** [Time] OR "N/A"
---

**Rules:**
- Only explicit commitments (not implied)
- Use exact quotes
- Include all speakers
- If no commitment, state clearly

Transcript:
{transcript}
`

const classifyCommitmentsPrompt = `# Classify Commitments by Quantifiability

**Task:** Determine if each commitment is measurable or needs clarification.

**Output Format:**
### [Participant Name]
[Keep original sections]
**Classification:** [Quantifiable/Not Quantifiable/No Goal/Decision Pending]
**Why:** [One sentence explanation]
**Suggestion:** [How to make quantifiable] OR "N/A"
---

**Rules:**
- **Quantifiable**: Has specific numbers, deadlines, or completion points
- **Not Quantifiable**: Vague without measurable criteria
- **No Goal**: No commitment made
- **Decision Pending**: Waiting on external factors
- Be strict: when in doubt, "Not Quantifiable"

Extracted Commitments:
{previous}
`

const generateNudgesPrompt = `# Generate Accountability Nudges

**Task:** Create personalized messages for participants without quantifiable goals.

**Output Format:**
### [Participant Name]
[Keep previous sections]
**Nudge Message:**
> @[Name] [Acknowledge their work]
>
> I noticed you didn't set a **quantifiable goal** during the call.
>
> Here are a few options:
> • [Goal with number/deadline]
> • [Goal with number/deadline]
>
> Want me to hold you accountable to one of these?

**Rules:**
- Only for "Not Quantifiable" or "No Goal"
- "N/A" for quantifiable goals
- Max 150 words
- Friendly tone

Classified Commitments:
{previous}
`

const marketingActivityPrompt = `Extract marketing activities by participant and classify them.

Categories:
- Network Activation: Outreach to existing relationships/referrals (warm intros, past clients, even if on LinkedIn)
- LinkedIn: New relationships or engagement on LinkedIn (new connections, posting, commenting)
- Cold Outreach: Contacting strangers outside LinkedIn (cold emails, cold calls)

Output Format:
Name: [Participant Name]
- Network Activation: [activity, qty if mentioned]
- LinkedIn: [activity, qty if mentioned]
- Cold Outreach: [activity, qty if mentioned]

If no marketing activity: "No marketing activity mentioned."

Transcript:
{transcript}
`

const pipelineOutcomePrompt = `Extract pipeline outcomes per participant: meetings, proposals, clients.

Output Format:
Name: [Participant Name]
Meetings: [#]
Proposals: [#]
Clients: [#]
Stage: [Meeting Booked / Proposal Sent / Client Closed] (optional)
Marketing Activity: [LinkedIn / Network Activation / Cold Outreach] (optional)
Notes: [brief context]

Use 0 if not mentioned.

Transcript:
{transcript}
`

const challengeStrategyPrompt = `Extract participant challenges and strategies shared during the call. Tag each challenge with the most relevant category.

Output Format:
Name: [Participant Name]
Challenge: [Summarize core challenge in 1-2 sentences. If implicit, start with "Implicit -".]
Category: [Pick ONE category from list below, or [NEW CATEGORY: Name]]
Strategies/Tips:
- [Who shared it] [verb: suggested/shared/recommended/advised] [short actionable summary] ([Strategy Type])

Challenge Categories:
- Clarity
- Lead Generation
- Sales & Conversion
- Systems & Operations
- Time & Focus
- Team & Delegation
- Mindset / Emotional
- Scaling & Offers
- Other

Strategy Types:
- Mindset Reframe
- Tactical Process
- Tool / Resource Suggestion
- Connection / Referral
- Framework / Model Shared

Transcript:
{transcript}
`

const stuckSignalPrompt = `You are an expert mastermind transcript analyst. Identify when participants express being stuck, stalled, or not making progress.

Output Format:
[PARTICIPANT NAME]
Stuck Summary:
[What kind of stuckness and why]
Exact Quotes:
[1-3 most revealing quotes verbatim, one per line]
Timestamp:
(Start–End)
Stuck Classification:
[Momentum Drop / Emotional Block / Overwhelm / Decision Paralysis / Repeating Goal / Other]
Potential Next Step or Nudge (Optional):
[Light-touch suggestion]

Only include participants who show stuck signals.

Transcript:
{transcript}
`

const helpOfferPrompt = `# Extract Help Offers

**Task:** Find when participants offer to help, support, or provide expertise to others.

**Output Format:**
### [PARTICIPANT NAME]
**What They Offered:** [Type of help offered]
**Context:** [Why this help is relevant]
**Exact Quote:** "[Exact words used]"
**Timestamp:** (XXm XXs)
**Classification:** [Expertise/Resource/General Support/Introductions/Review & Feedback]

Transcript:
{transcript}
`

const sentimentPrompt = `# Analyze Call Sentiment & Group Health

**Task:** Analyze emotional tone to detect morale shifts and group health.

**Output Format:**
**Sentiment Score:** [1-5]
**Rationale:** [1-2 sentences explaining score]
**Dominant Emotions:** [2-4 emotional tags, comma separated]
**Representative Quotes:**
- [Name]: "[quote]"
**Confidence Score:** [0-1]
**Negative Participants:**
- [Name]: [emotions] - "[evidence]"

**Scoring:**
- 5 High Positive, 4 Positive, 3 Neutral/Mixed, 2 Negative, 1 Very Negative

Transcript:
{transcript}
`
