package bot

import "fmt"

const (
	msgGreeting = "Hi! Send me any prompt and I will generate a batch of images, " +
		"plus a short video from the first one.\n" +
		"Prompts in any language are translated automatically.\n\n" +
		"Example: Futuristic cyberpunk city with neon lights"

	msgBanned       = "You are blocked from using this bot."
	msgAccepted     = "Prompt accepted. Translating and generating images..."
	msgGenFailed    = "The image service is unavailable right now, please try again later."
	msgNoAssets     = "The image service returned no images for this prompt."
	msgFetchFailed  = "Downloading the generated images failed, please try again."
	msgVideoFailed  = "The images are ready, but the video could not be created."
	msgRegenerating = "Regenerating..."
	msgNotAdmin     = "This command is admin-only."

	msgAskBroadcast = "Send the message you want forwarded to every user."
	msgAskLimit     = "Send the new rate limit in seconds (for example: 30)."
	msgAskBan       = "Send the user id to ban or unban (a plain number)."
	msgAskToken     = "Send the provider token, or token|session."
)

func msgRateLimited(seconds int64) string {
	return fmt.Sprintf("Please wait %d seconds before generating again.", seconds)
}

func msgPromptCaption(prompt string) string {
	return "Prompt: " + prompt
}
