package checklist

// Section is one problem with its remedies.
type Section struct {
	Problem string
	Steps   []string
}

// Guide is the troubleshooting help shown next to a check.
type Guide struct {
	Title    string
	Sections []Section
}

// GuideFor returns the troubleshooting guide for a check, if it has one.
func GuideFor(id CheckID) (Guide, bool) {
	switch id {
	case Fathom:
		return Guide{
			Title: "Fathom Installation & Setup",
			Sections: []Section{
				{Problem: "Can't find Fathom extension:", Steps: []string{
					"Visit chrome.google.com/webstore",
					"Search for 'Fathom' and install the extension",
					"Restart your browser after installation",
				}},
				{Problem: "Fathom not recording:", Steps: []string{
					"Check browser permissions for microphone and camera",
					"Click the Fathom extension icon and ensure it's enabled",
					"Make sure you've granted recording permissions",
				}},
				{Problem: "Can't invite Fathom to meeting:", Steps: []string{
					"Use exactly this email: assistant@fathom.video",
					"Send the invite from within Google Meet",
					"Wait for Fathom to join (usually takes 10-20 seconds)",
				}},
			},
		}, true
	case Meet:
		return Guide{
			Title: "Google Meet Setup Issues",
			Sections: []Section{
				{Problem: "Can't create meeting:", Steps: []string{
					"Make sure you're signed into your Google Account",
					"Visit https://meet.google.com",
					"Click 'New Meeting' → 'Start an instant meeting'",
				}},
				{Problem: "Meeting link not working:", Steps: []string{
					"Try refreshing the page",
					"Create a new meeting if issues persist",
					"Ensure your internet connection is stable",
				}},
				{Problem: "Can't invite Fathom:", Steps: []string{
					"Look for 'Add people' button in the meeting",
					"Enter: assistant@fathom.video",
					"Click 'Send invitation'",
				}},
			},
		}, true
	case Video:
		return Guide{
			Title: "Video/Camera Issues",
			Sections: []Section{
				{Problem: "Camera not detected:", Steps: []string{
					"Check if another app is using your camera",
					"Close Zoom, Skype, or other video apps",
					"Refresh the Google Meet page",
				}},
				{Problem: "Video quality poor:", Steps: []string{
					"Close other applications to improve performance",
					"Move closer to your internet router",
					"Ensure good lighting on your face",
				}},
				{Problem: "Wrong camera selected:", Steps: []string{
					"Click camera settings in Google Meet",
					"Select the correct camera from dropdown",
					"Use your laptop's built-in camera for best results",
				}},
			},
		}, true
	case Audio:
		return Guide{
			Title: "Audio/Microphone Issues",
			Sections: []Section{
				{Problem: "Microphone not working:", Steps: []string{
					"Check system sound settings",
					"Ensure microphone isn't muted in system tray",
					"Test microphone at https://mictests.com",
				}},
				{Problem: "Audio feedback/echo:", Steps: []string{
					"Use headphones or earbuds",
					"Move away from speakers",
					"Lower your system volume",
				}},
				{Problem: "Volume too low:", Steps: []string{
					"Increase microphone level in system settings",
					"Speak closer to your microphone",
					"Check Google Meet microphone settings",
				}},
			},
		}, true
	case ScreenShare:
		return Guide{
			Title: "Screen Sharing Issues",
			Sections: []Section{
				{Problem: "Can't start screen sharing:", Steps: []string{
					"Click 'Present now' in Google Meet",
					"Select 'A tab' (not entire screen)",
					"Choose the browser tab with this interview",
				}},
				{Problem: "Sharing wrong content:", Steps: []string{
					"Stop current sharing",
					"Click 'Present now' again",
					"Select 'A tab' and choose the correct tab",
				}},
				{Problem: "Screen share not visible:", Steps: []string{
					"Make sure this browser tab is active",
					"Don't minimize or switch tabs during interview",
					"Keep this tab in focus throughout",
				}},
			},
		}, true
	case NoteKeeper, Environment, Timer:
		return Guide{}, false
	}
	return Guide{}, false
}
