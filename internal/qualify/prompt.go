package qualify

import (
	"fmt"
	"strings"

	"leadscout/internal/domain"
	"leadscout/internal/scrape/util"
)

const maxPromptContentRunes = 2000

// Services is the taxonomy the classifier picks service_match entries from.
var Services = []string{"RWA Tokenization", "Crypto/Web3", "Blockchain", "AI/ML"}

const SystemPrompt = "You are a strict sales lead qualifier. Only qualify leads where someone " +
	"explicitly asks for services. Respond with valid JSON only."

// JSONOnlySuffix is appended for the fallback provider, which tends to wrap
// its answer in prose without it.
const JSONOnlySuffix = `

**IMPORTANT: Respond with ONLY valid JSON in this exact format:**
{
    "is_qualified": true or false,
    "confidence_score": 0.0 to 1.0,
    "reason": "explanation",
    "service_match": ["service1", "service2"]
}

Do not include any text before or after the JSON. Only output the JSON object.`

const promptTemplate = `You are qualifying sales leads. ONLY qualify if someone is ACTIVELY SEEKING our services.

**OUR SERVICES:**
- RWA Tokenization: Tokenizing real-world assets on blockchain
- Crypto/Web3: DeFi, Web3 apps, smart contracts, crypto integration
- Blockchain: Custom blockchain, distributed ledger, consensus
- AI/ML: AI automation, ML models, chatbots, neural networks
%s
**Lead Content:**
%s

**QUALIFICATION RULES:**

HIGH CONFIDENCE (0.8-1.0) - QUALIFY ONLY IF:
1. Contains a help-seeking phrase (at least one required), e.g.
   "looking for [service/consultant/agency/solution/platform]",
   "need help [with/implementing/building]", "recommend a [service/tool/platform]",
   "anyone know [a good/any/where to find]", "seeking [expert/consultant/developer/agency]",
   "can someone help me", "suggestions for", "best [platform/service/tool] for",
   "who can help [me/us] with", "where can I find"
2. AND describes a problem or need related to our services
3. AND is clearly asking for external help (not DIY/learning)

Example QUALIFIED leads:
- "Looking for a blockchain consultant to help tokenize our real estate portfolio"
- "Need help implementing DeFi protocol, any recommendations?"
- "Anyone know a good RWA platform for asset tokenization?"
- "Seeking AI automation expert to build chatbot for customer service"

MODERATE (0.4-0.7) - UNCERTAIN:
- Vague "how to" without clearly seeking a service
- Discusses challenges but doesn't explicitly ask for help
- Mentions considering hiring but unclear

LOW (0.0-0.3) - DO NOT QUALIFY:
- Just discussing or learning about the topic
- Sharing news, articles, opinions, updates
- Promoting or announcing their own product/service
- Explaining concepts to others

**CRITICAL RULES:**
1. Be STRICT - only qualify if EXPLICITLY asking for external service/help
2. Quote the exact help-seeking phrase found in your reason
3. If no help-seeking phrase is present, is_qualified=false
4. Discussions about topics are not service requests

Response JSON (no markdown):
{
  "is_qualified": true/false,
  "confidence_score": 0.0-1.0,
  "reason": "Quote the help-seeking phrase found, or explain why not qualified (1-2 sentences)",
  "service_match": ["RWA Tokenization"] or ["Crypto/Web3"] or ["Blockchain"] or ["AI/ML"] or []
}`

const targetTemplate = `
**MANDATORY FILTER: %[1]s SERVICE ONLY**

You MUST ONLY qualify leads asking for %[2]s service specifically.
- If asking for %[2]s: check if qualified using the rules below
- If asking for OTHER services: set is_qualified=false, confidence=0.0
- If unclear which service: confidence 0.3 max

REJECT leads about other services even if they are high-quality inquiries.
`

// BuildPrompt renders the classification prompt for one lead. target, when
// set, adds the single-service filter section.
func BuildPrompt(lead domain.Lead, target string) string {
	text := util.Truncate(lead.Content, maxPromptContentRunes)
	if lead.Title != "" {
		text = lead.Title + "\n\n" + text
	}

	focus := ""
	if t := strings.TrimSpace(target); t != "" {
		focus = fmt.Sprintf(targetTemplate, strings.ToUpper(t), t)
	}
	return fmt.Sprintf(promptTemplate, focus, text)
}
