// Package notifier delivers event notifications to chat channels.
//
// Each new event becomes one message. Slack receives an incoming-webhook payload,
// either plain text or a block list with an image block ahead of the text block.
// Telegram receives a photo with a caption, or an HTML message when there is no
// preview image. DryRun writes the Slack payload to a writer instead of sending it.
package notifier
