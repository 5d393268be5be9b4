package phrase

// Basic Lead gate.
const (
	SpamThreshold        = 3
	PromotionalThreshold = 4
	// content under this many words is "short" for the promotional check
	ShortContentWords = 50
)

// Qualification pre-filter.
const (
	NonInquiryThreshold     = 2
	ImplicitSignalThreshold = 2
)

var Spam = NewSet("spam",
	"check out our",
	"our platform offers",
	"we provide services",
	"proud to announce",
	"join our webinar",
	"register now",
	"click here",
	"buy now",
	"limited time offer",
	"visit our website",
	"dm for more",
	"link in bio",
	"use my referral",
	"promo code",
	"discount code",
	"free trial",
	"sign up today",
	"act now",
	"100% guaranteed",
	"earn money fast",
)

var Promotional = NewSet("promotional",
	"free",
	"discount",
	"offer",
	"sale",
	"deal",
	"promo",
	"giveaway",
	"subscribe",
	"exclusive",
	"guaranteed",
	"bonus",
	"airdrop",
	"presale",
	"whitelist",
)

var ObviousSpam = NewSet("obvious_spam",
	"check out our",
	"our platform offers",
	"we provide services",
	"proud to announce",
	"join our webinar",
	"register now",
	"click here",
	"buy now",
	"limited time offer",
	"visit our website",
	"dm for more",
	"link in bio",
)

var ObviousHiring = NewSet("obvious_hiring",
	"we are hiring",
	"we're hiring",
	"job opening",
	"apply now",
	"submit your resume",
	"send cv to",
	"position available",
	"now accepting applications",
)

var HelpSeeking = NewSet("help_seeking",
	"looking for",
	"need advice",
	"need help",
	"need guidance",
	"need suggestions",
	"need recommendations",
	"seeking advice",
	"seeking help",
	"seeking recommendations",
	"any advice",
	"any suggestions",
	"any recommendations",
	"anyone recommend",
	"anyone suggest",
	"anyone know",
	"does anyone",
	"can someone",
	"who can help",
	"where can i",
	"how do i",
	"what should i",
	"help me",
	"help needed",
	"advice needed",
	"recommendations needed",
	"suggestions welcome",
	"looking to hire",
	"considering",
	"evaluating",
	"exploring options",
	"which is best",
	"what's the best",
	"whats the best",
	"best way to",
	"best solution",
	"best platform",
)

var ImplicitSignals = NewSet("implicit_signals",
	// problem statements
	"struggling with",
	"having trouble",
	"can't figure out",
	"issues with",
	"problems with",
	"challenge with",
	"difficulty with",
	"stuck on",
	"blocked by",
	// evaluation
	"considering hiring",
	"thinking about",
	"planning to",
	"budget for",
	"budget:",
	"price range",
	"cost estimate",
	"willing to pay",
	"looking to invest",
	// questions
	"has anyone",
	"anyone experienced",
	"anyone here",
	"anyone tried",
	"anyone worked with",
	// tool seeking
	"what tool",
	"which platform",
	"which service",
	"recommend",
	"suggestion",
	"advice",
	// business need
	"we need",
	"i need",
	"our company needs",
	"our project requires",
	"requirement for",
	"must have",
	"essential to have",
)

// JobPosting flags LinkedIn items that advertise a role rather than ask for
// a service. A single hit is enough.
var JobPosting = NewSet("job_posting",
	"hiring",
	"job opening",
	"we're hiring",
	"join our team",
	"apply now",
	"career opportunity",
	"now hiring",
	"careers",
	"job opportunity",
	"seeking candidates",
	"vacancy",
	"position available",
	"open position",
)

// JobPostingBroad is the wider list the analyze report uses to estimate how
// many stored leads are really job ads.
var JobPostingBroad = NewSet("job_posting_broad",
	"hiring",
	"looking for a",
	"looking for an",
	"apply",
	"cv",
	"resume",
	"join our team",
	"years experience",
	"open to work",
	"candidate",
	"recruitment",
	"full-time",
	"part-time",
	"salary",
	"compensation",
)
